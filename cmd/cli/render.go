package main

import (
	"sort"
	"strings"
	"text/template"

	"github.com/charmbracelet/glamour"
	"github.com/shopspring/decimal"

	"github.com/iho/lendlog/internal/adapter/http/dto"
)

var funcs = template.FuncMap{
	"owes":     owes,
	"truncate": truncate,
	"decimal":  func(d *decimal.Decimal) string { return d.StringFixed(2) },
}

var portfolioTmpl = template.Must(template.New("portfolio").Funcs(funcs).Parse(`# Portfolio
{{range .Ledgers}}
## {{.FriendName}}{{if not .HasPartner}} (waiting to join){{end}}
{{if .Settled}}
All settled.
{{else}}
| Currency | Balance | |
|---|---:|---|
{{- range .Balances}}
| {{.Currency}} | {{.Formatted}} | {{owes .Amount}} |
{{- end}}
{{if .Converted}}
Total: **{{decimal .Converted}} {{$.ReportingCurrency}}**
{{end}}{{end}}{{else}}
No ledgers yet.
{{end}}
## Overall
{{if .Total}}
| Currency | Balance |
|---|---:|
{{- range .Total}}
| {{.Currency}} | {{.Formatted}} |
{{- end}}
{{else}}
All settled.
{{end}}{{if .TotalConverted}}
Net: **{{decimal .TotalConverted}} {{.ReportingCurrency}}**
{{end}}`))

var ledgersTmpl = template.Must(template.New("ledgers").Funcs(funcs).Parse(`# Ledgers
{{if .}}
| ID | Friend | Partner | Invite |
|---|---|---|---|
{{- range .}}
| {{truncate .ID 12}} | {{if .Settings}}{{.Settings.FriendName}}{{end}} | {{if .HasPartner}}{{.PartnerID}}{{else}}-{{end}} | {{.InviteCode}} |
{{- end}}
{{else}}
No ledgers yet.
{{end}}`))

var balancesTmpl = template.Must(template.New("balances").Funcs(funcs).Parse(`# Balances
{{if .Settled}}
All settled.
{{else}}
| Currency | Balance | |
|---|---:|---|
{{- range .Balances}}
| {{.Currency}} | {{.Formatted}} | {{owes .Amount}} |
{{- end}}
{{end}}`))

type rateRow struct {
	Code string
	Rate float64
}

var ratesTmpl = template.Must(template.New("rates").Parse(`# Rates (base {{.Base}})
{{if .TakenAt}}
Taken at {{.TakenAt.Format "2006-01-02 15:04 MST"}}.
{{else}}
Approximate fallback rates.
{{end}}
| Currency | Rate |
|---|---:|
{{- range .Rows}}
| {{.Code}} | {{printf "%.4f" .Rate}} |
{{- end}}
`))

// owes describes a signed balance from the caller's side.
func owes(amount decimal.Decimal) string {
	switch amount.Sign() {
	case 1:
		return "owed to you"
	case -1:
		return "you owe"
	}
	return "settled"
}

// truncate shortens s to n runes, marking the cut with an ellipsis.
func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	if n <= 3 {
		return string(r[:n])
	}
	return string(r[:n-3]) + "..."
}

func execute(t *template.Template, data any) (string, error) {
	var sb strings.Builder
	if err := t.Execute(&sb, data); err != nil {
		return "", err
	}
	return sb.String(), nil
}

func portfolioMarkdown(p *dto.PortfolioResponse) (string, error) {
	return execute(portfolioTmpl, p)
}

func ledgersMarkdown(ledgers []dto.LedgerResponse) (string, error) {
	return execute(ledgersTmpl, ledgers)
}

func balancesMarkdown(b *dto.LedgerBalancesResponse) (string, error) {
	return execute(balancesTmpl, b)
}

func ratesMarkdown(r *dto.RatesResponse) (string, error) {
	rows := make([]rateRow, 0, len(r.Rates))
	for code, rate := range r.Rates {
		rows = append(rows, rateRow{Code: code, Rate: rate})
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].Code < rows[j].Code })

	return execute(ratesTmpl, struct {
		*dto.RatesResponse
		Rows []rateRow
	}{r, rows})
}

// display styles markdown for the terminal unless raw output was asked for.
func display(md string, raw bool) (string, error) {
	if raw {
		return md, nil
	}
	return glamour.Render(md, "dark")
}
