// Package dispatch composes one outbound message per group, resolves its
// recipients against the directory, and drives the batch send loop.
//
// Groups without a directory entry are skipped and reported, never fatal.
// The first transport failure aborts the remaining batch; messages already
// sent stand, and the partial send log is still returned.
package dispatch

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/felipeCordeiroDosSantos/AutomailerEvelog/internal/directory"
	"github.com/felipeCordeiroDosSantos/AutomailerEvelog/internal/input"
	"github.com/felipeCordeiroDosSantos/AutomailerEvelog/internal/mailer"
	"github.com/felipeCordeiroDosSantos/AutomailerEvelog/internal/orders"
	"github.com/felipeCordeiroDosSantos/AutomailerEvelog/internal/pipeline"
	"github.com/felipeCordeiroDosSantos/AutomailerEvelog/internal/report"
)

// SendLogEntry records one successfully dispatched group.
type SendLogEntry struct {
	Group string
	To    string
	Cc    string
	Rows  int
}

// Result is what a dispatch run hands back to the operator: the send log
// and the groups whose key had no directory entry. Nothing is persisted.
type Result struct {
	Sent       []SendLogEntry
	Unresolved []string
}

// Orchestrator resolves recipients and delegates delivery to the transport.
type Orchestrator struct {
	transport mailer.Transport
	loader    *directory.Loader
	sender    string
	cc        []string
}

// NewOrchestrator wires a dispatch run. The sender is appended to the
// operator Cc list exactly once when absent; the operator's order is kept.
func NewOrchestrator(transport mailer.Transport, loader *directory.Loader, sender string, cc []string) *Orchestrator {
	return &Orchestrator{
		transport: transport,
		loader:    loader,
		sender:    sender,
		cc:        AppendSenderCC(cc, sender),
	}
}

// GroupOptions parameterizes a grouped send.
type GroupOptions struct {
	// Subject is the operator subject; status mode interpolates the group
	// key into it. Ignored in collection mode, which builds its own.
	Subject string
	// BodyText is the operator's free-text message.
	BodyText string
	// TableMode selects the report column layout.
	TableMode report.TableMode

	// Collection enables attachment handling and the collection subject.
	Collection bool
	// OrderColumn is the column holding order identifiers (collection).
	OrderColumn int
	// Attachments maps uploaded filename to content (collection).
	Attachments map[string][]byte
}

// SendGroups dispatches one message per group, in group order. A group
// whose key cannot be resolved is logged and collected; any transport or
// composition error aborts the remainder and is returned alongside the
// partial result.
func (o *Orchestrator) SendGroups(ctx context.Context, groups []pipeline.Group, opts GroupOptions) (*Result, error) {
	dir, err := o.loader.Directory()
	if err != nil {
		return nil, err
	}

	attachIndex := indexAttachments(opts.Attachments)
	result := &Result{}

	for _, g := range groups {
		raw, ok := dir.Resolve(g.Key)
		if !ok || strings.TrimSpace(raw) == "" {
			slog.Warn("no directory entry for group, skipping", "group", g.Key)
			result.Unresolved = append(result.Unresolved, g.Key)
			continue
		}
		to := ParseAddressList(raw)

		msg, err := o.composeGroup(g, opts, to, attachIndex)
		if err != nil {
			return result, fmt.Errorf("group %s: %w", g.Key, err)
		}

		if err := o.transport.Send(ctx, msg); err != nil {
			return result, fmt.Errorf("group %s: %w", g.Key, err)
		}

		slog.Info("email sent",
			"group", g.Key,
			"recipients", len(to),
			"rows", g.Table.Len(),
		)
		result.Sent = append(result.Sent, SendLogEntry{
			Group: g.Key,
			To:    strings.Join(to, ", "),
			Cc:    strings.Join(o.cc, ", "),
			Rows:  g.Table.Len(),
		})
	}

	return result, nil
}

// SendOrders dispatches the text-order variant: one narrative message per
// order row, addressed per restaurant, Cc fixed to the sender. Unresolved
// restaurants are deduplicated in the report.
func (o *Orchestrator) SendOrders(ctx context.Context, list []orders.Order) (*Result, error) {
	dir, err := o.loader.Directory()
	if err != nil {
		return nil, err
	}

	result := &Result{}
	missing := make(map[string]bool)

	for _, ord := range list {
		key := input.Normalize(ord.Restaurant)
		raw, ok := dir.Resolve(key)
		if !ok || strings.TrimSpace(raw) == "" {
			if !missing[key] {
				missing[key] = true
				result.Unresolved = append(result.Unresolved, key)
			}
			slog.Warn("no directory entry for restaurant, skipping", "restaurant", key, "order", ord.Number)
			continue
		}
		to := ParseAddressList(raw)
		cc := []string{o.sender}

		msg := &mailer.Message{
			From:    o.sender,
			To:      to,
			Cc:      cc,
			Subject: fmt.Sprintf("SOLICITAÇÃO DE NF NIG \"%s\"", ord.Number),
			HTML:    report.RenderOrderBody(ord),
		}
		if err := o.transport.Send(ctx, msg); err != nil {
			return result, fmt.Errorf("order %s: %w", ord.Number, err)
		}

		slog.Info("email sent", "restaurant", key, "order", ord.Number)
		result.Sent = append(result.Sent, SendLogEntry{
			Group: key,
			To:    strings.Join(to, ", "),
			Cc:    strings.Join(cc, ", "),
			Rows:  1,
		})
	}

	return result, nil
}

func (o *Orchestrator) composeGroup(g pipeline.Group, opts GroupOptions, to []string, attachIndex map[string]mailer.Attachment) (*mailer.Message, error) {
	table, err := report.RenderTable(g.Table, opts.TableMode)
	if err != nil {
		return nil, err
	}

	msg := &mailer.Message{
		From: o.sender,
		To:   to,
		Cc:   o.cc,
		HTML: report.RenderBody(opts.BodyText, table),
	}

	if opts.Collection {
		var orderIDs []string
		for i := range g.Table.Rows {
			id := strings.TrimSpace(g.Table.Cell(i, opts.OrderColumn))
			orderIDs = append(orderIDs, id)
			if a, ok := attachIndex[id]; ok {
				msg.Attachments = append(msg.Attachments, a)
			}
		}
		msg.Subject = "PRÉ ALERTA DE COLETA TRAMONTINA - " + strings.Join(orderIDs, ", ")
	} else {
		msg.Subject = fmt.Sprintf("%s – Unidade %s", opts.Subject, g.Key)
	}

	return msg, nil
}

// AppendSenderCC returns the Cc list with the sender appended exactly once
// when it is not already present. Presence is an exact string match and
// the original order is preserved.
func AppendSenderCC(cc []string, sender string) []string {
	out := make([]string, 0, len(cc)+1)
	out = append(out, cc...)
	for _, addr := range cc {
		if addr == sender {
			return out
		}
	}
	return append(out, sender)
}

// ParseAddressList splits a raw comma-separated address string, trimming
// entries and dropping empties. No validation or deduplication happens
// here, matching the directory contract.
func ParseAddressList(raw string) []string {
	parts := strings.Split(raw, ",")
	addresses := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			addresses = append(addresses, trimmed)
		}
	}
	return addresses
}

// indexAttachments keys attachments by order identifier (filename minus
// extension, trimmed). Exact match only.
func indexAttachments(attachments map[string][]byte) map[string]mailer.Attachment {
	index := make(map[string]mailer.Attachment, len(attachments))
	for name, content := range attachments {
		index[pipeline.AttachmentKey(name)] = mailer.Attachment{Filename: name, Content: content}
	}
	return index
}
