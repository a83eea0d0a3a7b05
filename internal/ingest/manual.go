package ingest

// ManualEntry is one row typed into the manual entry form. Amount uses the
// Brazilian locale ("1.234,56").
type ManualEntry struct {
	Date        string `json:"date"`
	Payer       string `json:"payer"`
	Category    string `json:"category"`
	Description string `json:"description"`
	Amount      string `json:"amount"`
	Split       string `json:"split"`
	Direction   string `json:"direction,omitempty"`
	Note        string `json:"note,omitempty"`
	Installment string `json:"installment,omitempty"`
}

// ManualRows converts form entries into template-layout rows numbered from 1.
func ManualRows(entries []ManualEntry) []Row {
	rows := make([]Row, 0, len(entries))
	for i, e := range entries {
		rows = append(rows, Row{
			Number: i + 1,
			Typed:  true,
			Values: map[Column]string{
				ColDate:        e.Date,
				ColPayer:       e.Payer,
				ColCategory:    e.Category,
				ColDescription: e.Description,
				ColAmount:      e.Amount,
				ColSplit:       e.Split,
				ColDirection:   e.Direction,
				ColNote:        e.Note,
				ColInstallment: e.Installment,
			},
		})
	}
	return rows
}
