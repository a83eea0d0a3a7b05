package core

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const (
	Lucas  Person = "Lucas"
	Rafa   Person = "Rafa"
	System Person = "system"

	// HouseholdLabel is the placeholder payer/owner meaning "the couple".
	HouseholdLabel = "Casa"

	OwnerHousehold Owner = HouseholdLabel
	OwnerLucas     Owner = Owner(Lucas)
	OwnerRafa      Owner = Owner(Rafa)

	Outflow Direction = "Saída"
	Inflow  Direction = "Entrada"

	SplitSixtyForty SplitRule = "60/40"
	SplitHalf       SplitRule = "50/50"
	SplitMine       SplitRule = "Meu"
	SplitOther      SplitRule = "Outro"

	SourceSpreadsheet BatchSource = "spreadsheet"
	SourceManual      BatchSource = "manual"
	SourceFixed       BatchSource = "fixed"

	StatusPreview  BatchStatus = "preview"
	StatusImported BatchStatus = "imported"
)

type (
	// Person is one of the two members of the household, or System for
	// generated batches.
	Person string

	// Owner is who bears a cost: the household or one person.
	Owner string

	Direction string

	SplitRule string

	BatchSource string

	BatchStatus string

	// Month is a reference month in YYYYMM form.
	Month string

	Money struct {
		Cents int64
	}

	Transaction struct {
		ID          int64
		BatchID     string
		Month       Month
		Date        string
		Description string
		Category    string
		Amount      Money
		Direction   Direction
		PayerLabel  string
		PayerReal   Person
		Owner       Owner
		Split       SplitRule
		Uploader    Person
		Note        string
		Installment string
		CreatedAt   time.Time
	}

	Batch struct {
		ID          string
		Month       Month
		Uploader    Person
		Source      BatchSource
		Filename    string
		Fingerprint string
		Status      BatchStatus
		RowCount    int
		CreatedAt   time.Time
	}

	Income struct {
		Month   Month
		Person  Person
		Salary1 Money
		Salary2 Money
		Extras  Money
	}

	Investment struct {
		Month  Month
		Person Person
		Amount Money
		Note   string
	}
)

var (
	ErrInvalidMonth     = errors.New("invalid month")
	ErrInvalidPerson    = errors.New("invalid person")
	ErrInvalidOwner     = errors.New("invalid owner")
	ErrInvalidDirection = errors.New("invalid direction")
	ErrInvalidSplit     = errors.New("invalid split rule")
	ErrInvalidAmount    = errors.New("invalid amount")
	ErrMonthLocked      = errors.New("month is locked for editing")
)

// People returns the household members in display order.
func People() []Person {
	return []Person{Lucas, Rafa}
}

func ParsePerson(s string) (Person, error) {
	for _, p := range People() {
		if strings.EqualFold(strings.TrimSpace(s), string(p)) {
			return p, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidPerson, s)
}

// IsMember reports whether p is one of the two household members.
func (p Person) IsMember() bool {
	return p == Lucas || p == Rafa
}

// Other returns the other household member, or "" for non-members.
func (p Person) Other() Person {
	switch p {
	case Lucas:
		return Rafa
	case Rafa:
		return Lucas
	}
	return ""
}

func ParseOwner(s string) (Owner, error) {
	s = strings.TrimSpace(s)
	if strings.EqualFold(s, HouseholdLabel) {
		return OwnerHousehold, nil
	}
	p, err := ParsePerson(s)
	if err != nil {
		return "", fmt.Errorf("%w: %q", ErrInvalidOwner, s)
	}
	return OwnerOf(p), nil
}

// OwnerOf returns the owner value for a specific person.
func OwnerOf(p Person) Owner {
	return Owner(p)
}

// Person returns the person owning the cost; ok is false for the household.
func (o Owner) Person() (Person, bool) {
	p := Person(o)
	return p, p.IsMember()
}

func ParseDirection(s string) (Direction, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "saída", "saida", "outflow", "out", "despesa":
		return Outflow, nil
	case "entrada", "inflow", "in", "receita", "reembolso":
		return Inflow, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidDirection, s)
}

// Sign is +1 for outflows and -1 for inflows.
func (d Direction) Sign() int64 {
	if d == Inflow {
		return -1
	}
	return 1
}

func ParseSplitRule(s string) (SplitRule, error) {
	switch strings.ToLower(strings.ReplaceAll(strings.TrimSpace(s), " ", "")) {
	case "60/40", "60-40", "60x40":
		return SplitSixtyForty, nil
	case "50/50", "50-50", "50x50":
		return SplitHalf, nil
	case "meu", "mine", "fully-mine", "100%meu":
		return SplitMine, nil
	case "outro", "other", "fully-other", "100%outro":
		return SplitOther, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidSplit, s)
}

// IsHousehold reports whether the rule divides the cost between both people.
func (r SplitRule) IsHousehold() bool {
	return r == SplitSixtyForty || r == SplitHalf
}

func ParseMonth(s string) (Month, error) {
	s = strings.TrimSpace(s)
	t, err := time.Parse("200601", s)
	if err != nil || len(s) != 6 {
		return "", fmt.Errorf("%w: %q", ErrInvalidMonth, s)
	}
	return MonthOf(t), nil
}

// MonthOf returns the reference month containing t.
func MonthOf(t time.Time) Month {
	return Month(t.Format("200601"))
}

// CurrentMonth returns the reference month for now in the given location.
func CurrentMonth(loc *time.Location) Month {
	if loc == nil {
		loc = time.Local
	}
	return MonthOf(time.Now().In(loc))
}

// Add returns the month n months after m (n may be negative).
func (m Month) Add(n int) Month {
	t, err := time.Parse("200601", string(m))
	if err != nil {
		return m
	}
	return MonthOf(t.AddDate(0, n, 0))
}

func (m Month) Validate() error {
	_, err := ParseMonth(string(m))
	return err
}

// Signed returns the amount with the direction sign applied.
func (t Transaction) Signed() decimal.Decimal {
	return t.Amount.Decimal().Mul(decimal.NewFromInt(t.Direction.Sign()))
}

// Total returns the sum of both salaries and extras.
func (i Income) Total() Money {
	return Money{Cents: i.Salary1.Cents + i.Salary2.Cents + i.Extras.Cents}
}

// Outcome reports whether a state change was allowed, with a user-facing
// message either way.
type Outcome struct {
	OK      bool   `json:"ok"`
	Message string `json:"message"`
}

func Allowed(msg string) Outcome {
	return Outcome{OK: true, Message: msg}
}

func Denied(msg string) Outcome {
	return Outcome{OK: false, Message: msg}
}
