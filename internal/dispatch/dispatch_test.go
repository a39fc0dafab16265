package dispatch

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/felipeCordeiroDosSantos/AutomailerEvelog/internal/directory"
	"github.com/felipeCordeiroDosSantos/AutomailerEvelog/internal/input"
	"github.com/felipeCordeiroDosSantos/AutomailerEvelog/internal/mailer"
	"github.com/felipeCordeiroDosSantos/AutomailerEvelog/internal/orders"
	"github.com/felipeCordeiroDosSantos/AutomailerEvelog/internal/pipeline"
	"github.com/felipeCordeiroDosSantos/AutomailerEvelog/internal/report"
)

// fakeTransport records sent messages and can fail from a given send on.
type fakeTransport struct {
	sent    []*mailer.Message
	failAt  int // 1-based index of the send that fails; 0 means never
	closed  bool
	failErr error
}

func (f *fakeTransport) Send(_ context.Context, msg *mailer.Message) error {
	if f.failAt > 0 && len(f.sent)+1 >= f.failAt {
		if f.failErr == nil {
			f.failErr = &mailer.TransportError{Op: "connect", Err: errors.New("auth failed")}
		}
		return f.failErr
	}
	f.sent = append(f.sent, msg)
	return nil
}

func (f *fakeTransport) Close() error {
	f.closed = true
	return nil
}

func testLoader(t *testing.T, csv string) *directory.Loader {
	t.Helper()
	path := filepath.Join(t.TempDir(), "emails.csv")
	if err := os.WriteFile(path, []byte(csv), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	return directory.NewLoader(path)
}

// statusRow builds a 19-column status-mode row for the given unit.
func statusRow(unit string) []string {
	row := make([]string, 19)
	row[0] = "C1"
	row[6] = unit
	row[14] = "ENTRADA"
	return row
}

func TestSendGroupsEndToEnd(t *testing.T) {
	table := &input.Table{
		Header: make([]string, 19),
		Rows: [][]string{
			statusRow("SP01"),
			statusRow("RJ02"),
			statusRow("SP01"),
		},
	}
	groups := pipeline.GroupBy(table, input.ColUnit)

	transport := &fakeTransport{}
	loader := testLoader(t, "Unidade,Emails\nSP01,\"sp@x.com, sp2@x.com\"\n")
	orch := NewOrchestrator(transport, loader, "me@x.com", []string{"cc@x.com"})

	result, err := orch.SendGroups(context.Background(), groups, GroupOptions{
		Subject:   "Pedidos em aberto",
		BodyText:  "Bom dia",
		TableMode: report.TableStatus,
	})
	if err != nil {
		t.Fatalf("SendGroups() error = %v", err)
	}

	if len(result.Sent) != 1 {
		t.Fatalf("sent %d messages, want 1", len(result.Sent))
	}
	if len(result.Unresolved) != 1 || result.Unresolved[0] != "RJ02" {
		t.Errorf("Unresolved = %v, want [RJ02]", result.Unresolved)
	}

	entry := result.Sent[0]
	if entry.Group != "SP01" {
		t.Errorf("log group = %q, want SP01", entry.Group)
	}
	if entry.Rows != 2 {
		t.Errorf("log rows = %d, want 2", entry.Rows)
	}

	msg := transport.sent[0]
	if len(msg.To) != 2 || msg.To[0] != "sp@x.com" || msg.To[1] != "sp2@x.com" {
		t.Errorf("To = %v, want the two resolved addresses", msg.To)
	}
	if want := "Pedidos em aberto – Unidade SP01"; msg.Subject != want {
		t.Errorf("Subject = %q, want %q", msg.Subject, want)
	}
	if got := strings.Count(msg.HTML, "<tr>") - 1; got != 2 {
		t.Errorf("table has %d data rows, want 2", got)
	}
}

func TestSenderAppendedToCCOnce(t *testing.T) {
	tests := []struct {
		name   string
		cc     []string
		sender string
		want   []string
	}{
		{"absent", []string{"a@x.com"}, "me@x.com", []string{"a@x.com", "me@x.com"}},
		{"already present", []string{"a@x.com", "me@x.com"}, "me@x.com", []string{"a@x.com", "me@x.com"}},
		{"empty", nil, "me@x.com", []string{"me@x.com"}},
		{"case differs is not a match", []string{"ME@x.com"}, "me@x.com", []string{"ME@x.com", "me@x.com"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := AppendSenderCC(tt.cc, tt.sender)
			if len(got) != len(tt.want) {
				t.Fatalf("AppendSenderCC() = %v, want %v", got, tt.want)
			}
			for i := range tt.want {
				if got[i] != tt.want[i] {
					t.Errorf("AppendSenderCC()[%d] = %q, want %q", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestSendGroupsAbortsOnTransportError(t *testing.T) {
	table := &input.Table{
		Header: make([]string, 19),
		Rows: [][]string{
			statusRow("AA01"),
			statusRow("BB02"),
			statusRow("CC03"),
		},
	}
	groups := pipeline.GroupBy(table, input.ColUnit)

	transport := &fakeTransport{failAt: 2}
	loader := testLoader(t, "Unidade,Emails\nAA01,a@x.com\nBB02,b@x.com\nCC03,c@x.com\n")
	orch := NewOrchestrator(transport, loader, "me@x.com", nil)

	result, err := orch.SendGroups(context.Background(), groups, GroupOptions{TableMode: report.TableStatus})

	var transportErr *mailer.TransportError
	if !errors.As(err, &transportErr) {
		t.Fatalf("SendGroups() error = %v, want *TransportError", err)
	}
	// Fail-fast: the first sent message stands, the rest are never tried.
	if len(result.Sent) != 1 || result.Sent[0].Group != "AA01" {
		t.Errorf("partial log = %+v, want only AA01", result.Sent)
	}
	if len(transport.sent) != 1 {
		t.Errorf("transport delivered %d messages, want 1", len(transport.sent))
	}
}

func TestSendGroupsCollectionAttachments(t *testing.T) {
	table := &input.Table{
		Header: []string{"ORDEM", "ORIGEM"},
		Rows: [][]string{
			{"111", "SP01"},
			{"222", "SP01"},
		},
	}
	groups := pipeline.GroupBy(table, 1)

	transport := &fakeTransport{}
	loader := testLoader(t, "Unidade,Emails\nSP01,sp@x.com\n")
	orch := NewOrchestrator(transport, loader, "me@x.com", nil)

	result, err := orch.SendGroups(context.Background(), groups, GroupOptions{
		BodyText:    "Segue coleta",
		TableMode:   report.TableCollection,
		Collection:  true,
		OrderColumn: 0,
		Attachments: map[string][]byte{
			"111.pdf":  []byte("%PDF-111"),
			"222.pdf":  []byte("%PDF-222"),
			"1111.pdf": []byte("%PDF-notmine"), // near miss, must not attach
		},
	})
	if err != nil {
		t.Fatalf("SendGroups() error = %v", err)
	}
	if len(result.Sent) != 1 {
		t.Fatalf("sent %d messages, want 1", len(result.Sent))
	}

	msg := transport.sent[0]
	if want := "PRÉ ALERTA DE COLETA TRAMONTINA - 111, 222"; msg.Subject != want {
		t.Errorf("Subject = %q, want %q", msg.Subject, want)
	}
	if len(msg.Attachments) != 2 {
		t.Fatalf("message has %d attachments, want 2", len(msg.Attachments))
	}
	names := []string{msg.Attachments[0].Filename, msg.Attachments[1].Filename}
	if names[0] != "111.pdf" || names[1] != "222.pdf" {
		t.Errorf("attachments = %v, want [111.pdf 222.pdf]", names)
	}
}

func TestSendGroupsDirectoryLoadFailureIsFatal(t *testing.T) {
	loader := directory.NewLoader(filepath.Join(t.TempDir(), "missing.csv"))
	transport := &fakeTransport{}
	orch := NewOrchestrator(transport, loader, "me@x.com", nil)

	_, err := orch.SendGroups(context.Background(), nil, GroupOptions{})

	var loadErr *directory.LoadError
	if !errors.As(err, &loadErr) {
		t.Fatalf("SendGroups() error = %v, want *directory.LoadError", err)
	}
	if len(transport.sent) != 0 {
		t.Error("nothing should be sent when the directory fails to load")
	}
}

func TestSendOrders(t *testing.T) {
	list := []orders.Order{
		{Restaurant: "cantina bella ", Number: "4711", Description: "FILE", Responsible: "MARIA"},
		{Restaurant: "SEM CADASTRO", Number: "4712"},
		{Restaurant: "SEM CADASTRO", Number: "4713"},
	}

	transport := &fakeTransport{}
	loader := testLoader(t, "Restaurante,Emails\nCANTINA BELLA,chef@x.com\n")
	orch := NewOrchestrator(transport, loader, "me@x.com", nil)

	result, err := orch.SendOrders(context.Background(), list)
	if err != nil {
		t.Fatalf("SendOrders() error = %v", err)
	}

	if len(result.Sent) != 1 {
		t.Fatalf("sent %d messages, want 1", len(result.Sent))
	}
	// Unresolved restaurants are reported once, not per order.
	if len(result.Unresolved) != 1 || result.Unresolved[0] != "SEM CADASTRO" {
		t.Errorf("Unresolved = %v, want [SEM CADASTRO]", result.Unresolved)
	}

	msg := transport.sent[0]
	if want := "SOLICITAÇÃO DE NF NIG \"4711\""; msg.Subject != want {
		t.Errorf("Subject = %q, want %q", msg.Subject, want)
	}
	if len(msg.Cc) != 1 || msg.Cc[0] != "me@x.com" {
		t.Errorf("Cc = %v, want just the sender", msg.Cc)
	}
	if !strings.Contains(msg.HTML, "<strong>4711</strong>") {
		t.Error("order body should interpolate the order number")
	}
}

func TestParseAddressList(t *testing.T) {
	got := ParseAddressList(" a@x.com , ,b@x.com,")
	want := []string{"a@x.com", "b@x.com"}
	if len(got) != len(want) {
		t.Fatalf("ParseAddressList() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("ParseAddressList()[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}
