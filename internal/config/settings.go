package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"financas/internal/core"
)

// FixedCharge is a recurring household bill stamped into every month.
type FixedCharge struct {
	Description string
	Category    string
	Amount      core.Money
	Payer       core.Person
	Split       core.SplitRule
}

// Settings holds the household's domain parameters.
type Settings struct {
	Shares       core.Shares
	Categories   []string
	FixedCharges []FixedCharge
	Reminders    []string
}

type settingsFile struct {
	Shares     map[string]map[string]string `yaml:"shares"`
	Categories []string                     `yaml:"categories"`
	Recurring  []struct {
		Description string `yaml:"description"`
		Category    string `yaml:"category"`
		Amount      string `yaml:"amount"`
		Payer       string `yaml:"payer"`
		Split       string `yaml:"split"`
	} `yaml:"recurring"`
	Reminders []string `yaml:"reminders"`
}

func DefaultSettings() Settings {
	return Settings{
		Shares: core.DefaultShares(),
		Categories: []string{
			"Moradia", "Mercado", "Contas", "Transporte", "Saúde", "Lazer", "Restaurantes",
			"Compras", "Pets", "Educação", "Viagem", "Presentes", "Outros",
		},
		FixedCharges: []FixedCharge{
			{Description: "Aluguel", Category: "Moradia", Amount: core.Money{Cents: 320000}, Payer: core.Lucas, Split: core.SplitSixtyForty},
			{Description: "Condomínio", Category: "Moradia", Amount: core.Money{Cents: 85000}, Payer: core.Lucas, Split: core.SplitSixtyForty},
			{Description: "Internet", Category: "Contas", Amount: core.Money{Cents: 12000}, Payer: core.Rafa, Split: core.SplitHalf},
			{Description: "Estacionamento", Category: "Moradia", Amount: core.Money{Cents: 25000}, Payer: core.Rafa, Split: core.SplitHalf},
		},
		Reminders: []string{"Luz", "Gás", "Água", "Feira"},
	}
}

// LoadSettings reads the YAML settings file at path on top of the defaults.
// An empty path returns the defaults. Sections absent from the file keep
// their default values.
func LoadSettings(path string) (Settings, error) {
	s := DefaultSettings()
	if path == "" {
		return s, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return Settings{}, fmt.Errorf("read settings file: %w", err)
	}
	return ParseSettings(data)
}

// ParseSettings decodes YAML settings on top of the defaults.
func ParseSettings(data []byte) (Settings, error) {
	s := DefaultSettings()

	var f settingsFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return Settings{}, fmt.Errorf("decode settings: %w", err)
	}

	var problems []string

	for rawRule, byPerson := range f.Shares {
		rule, err := core.ParseSplitRule(rawRule)
		if err != nil || !rule.IsHousehold() {
			problems = append(problems, fmt.Sprintf("shares: %q is not a household split rule", rawRule))
			continue
		}
		parsed := map[core.Person]decimal.Decimal{}
		for rawPerson, rawShare := range byPerson {
			p, err := core.ParsePerson(rawPerson)
			if err != nil {
				problems = append(problems, fmt.Sprintf("shares %s: %v", rule, err))
				continue
			}
			v, err := decimal.NewFromString(strings.TrimSpace(rawShare))
			if err != nil {
				problems = append(problems, fmt.Sprintf("shares %s: invalid value %q for %s", rule, rawShare, p))
				continue
			}
			parsed[p] = v
		}
		s.Shares[rule] = parsed
	}

	if len(f.Categories) > 0 {
		s.Categories = f.Categories
	}
	if len(f.Reminders) > 0 {
		s.Reminders = f.Reminders
	}

	if len(f.Recurring) > 0 {
		s.FixedCharges = nil
		for i, rc := range f.Recurring {
			fc := FixedCharge{
				Description: strings.TrimSpace(rc.Description),
				Category:    strings.TrimSpace(rc.Category),
				Amount:      core.ParseBRL(rc.Amount),
			}
			payer, err := core.ParsePerson(rc.Payer)
			if err != nil {
				problems = append(problems, fmt.Sprintf("recurring[%d]: %v", i, err))
			}
			fc.Payer = payer
			split, err := core.ParseSplitRule(rc.Split)
			if err != nil || !split.IsHousehold() {
				problems = append(problems, fmt.Sprintf("recurring[%d]: split must be %s or %s", i, core.SplitSixtyForty, core.SplitHalf))
			}
			fc.Split = split
			if fc.Description == "" {
				problems = append(problems, fmt.Sprintf("recurring[%d]: description is required", i))
			}
			if !fc.Amount.IsPositive() {
				problems = append(problems, fmt.Sprintf("recurring[%d]: amount must be greater than 0", i))
			}
			s.FixedCharges = append(s.FixedCharges, fc)
		}
	}

	if err := s.Shares.Validate(); err != nil {
		problems = append(problems, err.Error())
	}
	if len(problems) > 0 {
		return Settings{}, fmt.Errorf("settings validation failed:\n- %s", strings.Join(problems, "\n- "))
	}
	return s, nil
}
