package notify

import (
	"bytes"
	"fmt"
	htmltemplate "html/template"
	"text/template"
	"time"

	"github.com/shopspring/decimal"

	"subtrack/internal/rates"
)

// DigestItem is one subscription entry in a reminder digest.
type DigestItem struct {
	Name       string
	Category   string
	Amount     decimal.Decimal
	Currency   string
	AmountBase decimal.Decimal // converted to the base currency, for the total line
	DaysLeft   int
	AutoRenew  bool
	Note       string
}

type digestData struct {
	Count    int
	Charged  []DigestItem // auto-renew, will be billed
	Expiring []DigestItem // manual, will lapse
	Total    string
	SentAt   string
}

// BuildDigest renders the text and HTML bodies for a set of due
// subscriptions. Auto-renewing items are listed before manual ones
// because they cost money without further action.
func BuildDigest(items []DigestItem, sentAt time.Time) Message {
	data := digestData{
		Count:  len(items),
		SentAt: sentAt.Format("2006-01-02 15:04"),
	}
	total := decimal.Zero
	for _, item := range items {
		if item.AutoRenew {
			data.Charged = append(data.Charged, item)
		} else {
			data.Expiring = append(data.Expiring, item)
		}
		total = total.Add(item.AmountBase)
	}
	data.Total = rates.FormatAmount(total, rates.BaseCurrency)

	return Message{
		Subject: digestSubject(len(items)),
		Text:    renderText(data),
		HTML:    renderHTML(data),
	}
}

func digestSubject(count int) string {
	if count == 1 {
		return "subtrack: 1 subscription due soon"
	}
	return fmt.Sprintf("subtrack: %d subscriptions due soon", count)
}

// DueText renders a days-left count for humans.
func DueText(daysLeft int) string {
	switch daysLeft {
	case 0:
		return "today"
	case 1:
		return "tomorrow"
	default:
		return fmt.Sprintf("in %d days", daysLeft)
	}
}

func formatItemAmount(item DigestItem) string {
	return rates.FormatAmount(item.Amount, item.Currency)
}

var digestFuncs = template.FuncMap{
	"due":    DueText,
	"amount": formatItemAmount,
}

const textTemplate = `Subscription renewal reminder
========================================
You have {{.Count}} subscription{{if ne .Count 1}}s{{end}} due soon:
{{if .Charged}}
Auto-renew (will be charged automatically):
{{range .Charged}}
- {{.Name}} ({{.Category}})
  amount: {{amount .}}
  due: {{due .DaysLeft}}{{if .Note}}
  note: {{.Note}}{{end}}
{{end}}{{end}}{{if .Expiring}}
Manual renewal (will expire unless renewed):
{{range .Expiring}}
- {{.Name}} ({{.Category}})
  amount: {{amount .}}
  due: {{due .DaysLeft}}{{if .Note}}
  note: {{.Note}}{{end}}
{{end}}{{end}}
========================================
Total: {{.Total}}
{{if .Charged}}
Cancel unwanted auto-renewals before the charge date.{{end}}{{if .Expiring}}
Renew manual subscriptions to keep access.{{end}}
Sent {{.SentAt}}
`

const htmlTemplate = `<!DOCTYPE html>
<html>
<head>
<style>
body { font-family: Arial, sans-serif; color: #222; }
.header { background-color: #2563eb; color: white; padding: 16px; text-align: center; }
.content { padding: 16px; }
table { width: 100%; border-collapse: collapse; margin-bottom: 16px; }
th, td { padding: 8px; text-align: left; border-bottom: 1px solid #ddd; }
th { background-color: #2563eb; color: white; }
.section { padding: 8px; margin: 12px 0 8px 0; background-color: #f0f0f0; border-radius: 4px; }
.amount { font-weight: bold; }
.note { color: #666; font-size: 12px; }
.total { font-size: 16px; margin-top: 12px; }
.footer { background-color: #333; color: white; padding: 12px; text-align: center; font-size: 12px; }
</style>
</head>
<body>
<div class="header"><h2>Subscription renewal reminder</h2></div>
<div class="content">
<p>You have <strong>{{.Count}}</strong> subscription{{if ne .Count 1}}s{{end}} due soon:</p>
{{if .Charged}}
<div class="section">Auto-renew: these will be charged automatically</div>
<table>
<tr><th>Name</th><th>Category</th><th>Amount</th><th>Due</th></tr>
{{range .Charged}}<tr>
<td>{{.Name}}{{if .Note}}<div class="note">{{.Note}}</div>{{end}}</td>
<td>{{.Category}}</td>
<td class="amount">{{amount .}}</td>
<td>{{due .DaysLeft}}</td>
</tr>
{{end}}</table>
{{end}}
{{if .Expiring}}
<div class="section">Manual renewal: these will expire unless renewed</div>
<table>
<tr><th>Name</th><th>Category</th><th>Amount</th><th>Due</th></tr>
{{range .Expiring}}<tr>
<td>{{.Name}}{{if .Note}}<div class="note">{{.Note}}</div>{{end}}</td>
<td>{{.Category}}</td>
<td class="amount">{{amount .}}</td>
<td>{{due .DaysLeft}}</td>
</tr>
{{end}}</table>
{{end}}
<p class="total"><strong>Total: {{.Total}}</strong></p>
</div>
<div class="footer">subtrack &middot; sent {{.SentAt}}</div>
</body>
</html>
`

var (
	textTmpl = template.Must(template.New("digest-text").Funcs(digestFuncs).Parse(textTemplate))
	htmlTmpl = htmltemplate.Must(htmltemplate.New("digest-html").
			Funcs(htmltemplate.FuncMap(digestFuncs)).Parse(htmlTemplate))
)

func renderText(data digestData) string {
	var buf bytes.Buffer
	if err := textTmpl.Execute(&buf, data); err != nil {
		return fmt.Sprintf("subtrack reminder: %d subscriptions due soon (render error: %v)", data.Count, err)
	}
	return buf.String()
}

func renderHTML(data digestData) string {
	var buf bytes.Buffer
	if err := htmlTmpl.Execute(&buf, data); err != nil {
		return "<p>subtrack reminder</p>"
	}
	return buf.String()
}
