package report

import (
	"html"
	"regexp"
	"strings"
	"testing"

	"github.com/felipeCordeiroDosSantos/AutomailerEvelog/internal/input"
	"github.com/felipeCordeiroDosSantos/AutomailerEvelog/internal/orders"
)

// statusTable builds a 19-column row with recognizable values at the
// offsets the status report selects.
func statusTable(rows int) *input.Table {
	header := make([]string, 19)
	t := &input.Table{Header: header}
	for r := 0; r < rows; r++ {
		row := make([]string, 19)
		row[0] = "C1"
		row[1] = "101"
		row[2] = "P1"
		row[3] = "ACME & CO" // must be escaped in HTML
		row[6] = "SP01"
		row[7] = "SAO PAULO"
		row[9] = "SP"
		row[14] = "ENTRADA"
		row[16] = "01/02/2026"
		row[17] = "05/02/2026"
		row[18] = "AVARIA"
		t.Rows = append(t.Rows, row)
	}
	return t
}

func TestRenderTableStatusColumns(t *testing.T) {
	got, err := RenderTable(statusTable(1), TableStatus)
	if err != nil {
		t.Fatalf("RenderTable() error = %v", err)
	}

	for _, label := range []string{"Codigo", "Nota Fiscal", "Pedido", "Cliente", "Destino", "Cidade", "UF", "Status", "Dt Evento", "Previsao"} {
		if !strings.Contains(got, "<th>"+label+"</th>") {
			t.Errorf("table missing header %q", label)
		}
	}
	if strings.Contains(got, "Descricao Status") {
		t.Error("status table should not carry the description column")
	}
	if !strings.Contains(got, "<td>ACME &amp; CO</td>") {
		t.Error("cell values should be HTML-escaped")
	}
	if got := strings.Count(got, "<th>"); got != 10 {
		t.Errorf("status table has %d columns, want 10", got)
	}
}

func TestRenderTableCustodyAddsDescription(t *testing.T) {
	got, err := RenderTable(statusTable(1), TableCustody)
	if err != nil {
		t.Fatalf("RenderTable() error = %v", err)
	}

	if got := strings.Count(got, "<th>"); got != 11 {
		t.Errorf("custody table has %d columns, want 11", got)
	}
	if !strings.Contains(got, "<th>Status</th><th>Descricao Status</th>") {
		t.Error("description column should follow Status")
	}
	if !strings.Contains(got, "<td>AVARIA</td>") {
		t.Error("description cell missing")
	}
}

func TestRenderTableTooNarrow(t *testing.T) {
	narrow := &input.Table{
		Header: make([]string, 5),
		Rows:   [][]string{make([]string, 5)},
	}
	if _, err := RenderTable(narrow, TableStatus); err == nil {
		t.Error("RenderTable() should reject files narrower than the report layout")
	}
}

func TestRenderTableCollectionUsesSourceHeaders(t *testing.T) {
	tb := &input.Table{
		Header: []string{"ORDEM", "ORIGEM"},
		Rows:   [][]string{{"12345", "SP01"}},
	}

	got, err := RenderTable(tb, TableCollection)
	if err != nil {
		t.Fatalf("RenderTable() error = %v", err)
	}
	if !strings.Contains(got, "<th>ORDEM</th><th>ORIGEM</th>") {
		t.Errorf("collection table should keep source headers, got %q", got)
	}
}

var cellRe = regexp.MustCompile(`<td>(.*?)</td>`)

// Rendering a single-row group and re-parsing the cells must recover the
// original field values unchanged.
func TestRenderTableRoundTrip(t *testing.T) {
	tb := statusTable(1)
	tb.Rows[0][3] = `<Cliente> "A & B"`

	rendered, err := RenderTable(tb, TableStatus)
	if err != nil {
		t.Fatalf("RenderTable() error = %v", err)
	}

	matches := cellRe.FindAllStringSubmatch(rendered, -1)
	if len(matches) != 10 {
		t.Fatalf("parsed %d cells, want 10", len(matches))
	}

	wantOffsets := []int{0, 1, 2, 3, 6, 7, 9, 14, 16, 17}
	for i, m := range matches {
		want := tb.Rows[0][wantOffsets[i]]
		if got := html.UnescapeString(m[1]); got != want {
			t.Errorf("cell %d round-tripped to %q, want %q", i, got, want)
		}
	}
}

func TestRenderBody(t *testing.T) {
	got := RenderBody("Bom dia,\nsegue relatório.", "<table></table>")

	if !strings.Contains(got, "Bom dia,<br>segue relatório.") {
		t.Error("line breaks should become <br>")
	}
	if !strings.Contains(got, "<table></table>") {
		t.Error("table fragment missing from body")
	}
	if !strings.Contains(got, "<i>Mensagem automática.</i>") {
		t.Error("fixed footer missing from body")
	}
	if strings.Index(got, "<table>") > strings.Index(got, "Mensagem automática") {
		t.Error("footer should come after the table")
	}
}

func TestRenderOrderBody(t *testing.T) {
	got := RenderOrderBody(orders.Order{
		Restaurant:  "CANTINA BELLA",
		Number:      "4711",
		Description: "FILE MIGNON",
		Responsible: "MARIA",
	})

	for _, want := range []string{
		"<strong>CANTINA BELLA</strong>",
		"<strong>4711</strong>",
		"<strong>FILE MIGNON</strong>",
		"<strong>MARIA</strong>",
		"NOTA FISCAL",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("order body missing %q", want)
		}
	}
	if strings.Contains(got, "<table") {
		t.Error("order body should be a narrative, not a table")
	}
}
