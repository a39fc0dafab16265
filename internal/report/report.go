// Package report renders per-group HTML email bodies: a relabeled order
// table plus the operator's free-text message.
//
// Cell values are HTML-escaped so they survive a render/parse round trip.
// The operator free text is interpolated as-is, matching the original
// system (operator-trusted input); add escaping before exposing this to
// untrusted callers.
package report

import (
	"fmt"
	"html"
	"strings"

	"github.com/felipeCordeiroDosSantos/AutomailerEvelog/internal/input"
	"github.com/felipeCordeiroDosSantos/AutomailerEvelog/internal/orders"
)

// TableMode selects which fixed column subset a report table carries.
type TableMode int

const (
	// TableStatus is the default 10-column report.
	TableStatus TableMode = iota
	// TableCustody adds the status-description column after Status.
	TableCustody
	// TableCollection renders every source column under its own header.
	TableCollection
)

// statusColumns is the fixed report subset for status mode, by source
// offset, with the human-readable label each one gets.
var statusColumns = []struct {
	offset int
	label  string
}{
	{0, "Codigo"},
	{1, "Nota Fiscal"},
	{2, "Pedido"},
	{3, "Cliente"},
	{6, "Destino"},
	{7, "Cidade"},
	{9, "UF"},
	{14, "Status"},
	{16, "Dt Evento"},
	{17, "Previsao"},
}

// custodyColumn is appended after Status in custody-substatus mode.
var custodyColumn = struct {
	offset int
	label  string
}{input.ColStatusDescription, "Descricao Status"}

// RenderTable renders a group's rows as an HTML table fragment. Column
// selection and labels are fixed per mode; row order follows the group's
// input order.
func RenderTable(t *input.Table, mode TableMode) (string, error) {
	labels, offsets, err := tableLayout(t, mode)
	if err != nil {
		return "", err
	}

	var b strings.Builder
	b.WriteString("<table border=\"1\">\n<thead>\n<tr>")
	for _, label := range labels {
		b.WriteString("<th>")
		b.WriteString(html.EscapeString(label))
		b.WriteString("</th>")
	}
	b.WriteString("</tr>\n</thead>\n<tbody>\n")

	for i := range t.Rows {
		b.WriteString("<tr>")
		for _, offset := range offsets {
			b.WriteString("<td>")
			b.WriteString(html.EscapeString(t.Cell(i, offset)))
			b.WriteString("</td>")
		}
		b.WriteString("</tr>\n")
	}
	b.WriteString("</tbody>\n</table>")

	return b.String(), nil
}

// RenderBody assembles the complete HTML body: the free text with line
// breaks converted, the table, and the fixed automatic-message footer.
func RenderBody(freeText, tableHTML string) string {
	var b strings.Builder
	b.WriteString("<p>")
	b.WriteString(strings.ReplaceAll(freeText, "\n", "<br>"))
	b.WriteString("</p>\n")
	b.WriteString(tableHTML)
	b.WriteString("\n<p><i>Mensagem automática.</i></p>")
	return b.String()
}

// RenderOrderBody renders the fixed narrative used by the text-order
// variant: no table, just the invoice request interpolating the order's
// fields.
func RenderOrderBody(o orders.Order) string {
	return fmt.Sprintf(`<p>Bom dia!</p>
<br>
<p><strong>%s</strong>,</p>
<p>
Foi transmitido a nós o pedido:
<strong>%s</strong> referentes a
<strong>%s</strong>,
solicitado via Central de Pedidos por
<strong>%s</strong>.
</p>
<p>
Por gentileza, nos encaminhar a NOTA FISCAL
para agendamento da coleta.
</p>
<br>
<p>Obrigado, no aguardo de um retorno.</p>`,
		o.Restaurant, o.Number, o.Description, o.Responsible)
}

func tableLayout(t *input.Table, mode TableMode) (labels []string, offsets []int, err error) {
	switch mode {
	case TableStatus, TableCustody:
		for _, c := range statusColumns {
			labels = append(labels, c.label)
			offsets = append(offsets, c.offset)
			if mode == TableCustody && c.offset == input.ColStatus {
				labels = append(labels, custodyColumn.label)
				offsets = append(offsets, custodyColumn.offset)
			}
		}
	case TableCollection:
		for i, h := range t.Header {
			labels = append(labels, h)
			offsets = append(offsets, i)
		}
	default:
		return nil, nil, fmt.Errorf("unknown table mode %d", mode)
	}

	for _, offset := range offsets {
		if offset >= t.Width() {
			return nil, nil, fmt.Errorf("report needs column %d but the file has only %d columns", offset, t.Width())
		}
	}
	return labels, offsets, nil
}
