package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"

	"github.com/felipeCordeiroDosSantos/AutomailerEvelog/internal/config"
	"github.com/felipeCordeiroDosSantos/AutomailerEvelog/internal/directory"
	"github.com/felipeCordeiroDosSantos/AutomailerEvelog/internal/dispatch"
	"github.com/felipeCordeiroDosSantos/AutomailerEvelog/internal/input"
	"github.com/felipeCordeiroDosSantos/AutomailerEvelog/internal/mailer"
	"github.com/felipeCordeiroDosSantos/AutomailerEvelog/internal/orders"
	"github.com/felipeCordeiroDosSantos/AutomailerEvelog/internal/pipeline"
	"github.com/felipeCordeiroDosSantos/AutomailerEvelog/internal/report"
)

// errNeedSubStatus is returned after the available descriptions have been
// listed for the operator, who must rerun with -substatus.
var errNeedSubStatus = errors.New("custody status requires -substatus")

type runOptions struct {
	Input          string
	AttachmentsDir string
	Directory      string
	Status         string
	SubStatus      string
	CC             string
	Subject        string
	Message        string
}

// run routes one invocation to the right pipeline: text exports by
// extension, otherwise the sheet classifier decides between the status and
// collection pipelines.
func run(ctx context.Context, cfg *config.Config, transport mailer.Transport, opts *runOptions) error {
	inputs := strings.Split(opts.Input, ",")

	if strings.EqualFold(filepath.Ext(inputs[0]), ".txt") {
		return runOrders(ctx, cfg, transport, opts, inputs)
	}
	if len(inputs) > 1 {
		return fmt.Errorf("only text-order mode accepts multiple input files")
	}

	data, err := os.ReadFile(opts.Input)
	if err != nil {
		return fmt.Errorf("failed to read input file: %w", err)
	}

	mode, err := input.Classify(opts.Input, data)
	if err != nil {
		return err
	}
	slog.Info("input classified", "file", opts.Input, "mode", mode.String())

	table, err := input.Load(opts.Input, data)
	if err != nil {
		return err
	}

	loader := directory.NewLoader(directoryPath(cfg.UnitDirectory, opts))
	orch := dispatch.NewOrchestrator(transport, loader, cfg.Sender, dispatch.ParseAddressList(opts.CC))

	var result *dispatch.Result
	switch mode {
	case input.ModeCollection:
		result, err = runCollection(ctx, orch, table, opts)
	default:
		result, err = runStatus(ctx, orch, table, opts)
	}
	if result != nil {
		printSummary(result)
	}
	return err
}

// runStatus drives the default status pipeline: normalize the unit and
// status columns, filter, optionally sub-filter custody rows, group by
// unit and dispatch.
func runStatus(ctx context.Context, orch *dispatch.Orchestrator, table *input.Table, opts *runOptions) (*dispatch.Result, error) {
	if opts.Subject == "" || opts.Message == "" {
		return nil, fmt.Errorf("status mode requires -subject and -message")
	}

	pipeline.NormalizeColumns(table, input.ColUnit, input.ColStatus)

	filtered, err := pipeline.FilterByStatus(table, input.ColStatus, opts.Status)
	if err != nil {
		return nil, err
	}

	tableMode := report.TableStatus
	if pipeline.HasCustodyKeyword(opts.Status) {
		if opts.SubStatus == "" {
			available := pipeline.Descriptions(filtered, input.ColStatusDescription)
			fmt.Fprintln(os.Stderr, "Status requires a description choice. Available:")
			for _, d := range available {
				fmt.Fprintf(os.Stderr, "  %s\n", d)
			}
			return nil, errNeedSubStatus
		}
		filtered, err = pipeline.FilterByDescription(filtered, input.ColStatusDescription, opts.SubStatus)
		if err != nil {
			return nil, err
		}
		tableMode = report.TableCustody
	}

	groups := pipeline.GroupBy(filtered, input.ColUnit)
	slog.Info("rows grouped", "rows", filtered.Len(), "groups", len(groups))

	return orch.SendGroups(ctx, groups, dispatch.GroupOptions{
		Subject:   opts.Subject,
		BodyText:  opts.Message,
		TableMode: tableMode,
	})
}

// runCollection drives the pickup pipeline: rows are kept only when a PDF
// named after their order identifier was supplied, then grouped by origin.
func runCollection(ctx context.Context, orch *dispatch.Orchestrator, table *input.Table, opts *runOptions) (*dispatch.Result, error) {
	if opts.Message == "" {
		return nil, fmt.Errorf("collection mode requires -message")
	}

	orderCol, ok := table.Column("ORDEM")
	if !ok {
		return nil, fmt.Errorf("collection sheet is missing the ORDEM column")
	}
	originCol, ok := table.Column("ORIGEM")
	if !ok {
		return nil, fmt.Errorf("collection sheet is missing the ORIGEM column")
	}

	if opts.AttachmentsDir == "" {
		return nil, fmt.Errorf("collection mode requires -attachments")
	}
	attachments, err := loadAttachments(opts.AttachmentsDir)
	if err != nil {
		return nil, err
	}
	slog.Info("attachments loaded", "count", len(attachments), "dir", opts.AttachmentsDir)

	pipeline.NormalizeColumns(table, originCol)
	filtered, err := pipeline.FilterByAttachment(table, orderCol, attachments)
	if err != nil {
		return nil, err
	}

	groups := pipeline.GroupBy(filtered, originCol)
	slog.Info("rows grouped", "rows", filtered.Len(), "groups", len(groups))

	return orch.SendGroups(ctx, groups, dispatch.GroupOptions{
		BodyText:    opts.Message,
		TableMode:   report.TableCollection,
		Collection:  true,
		OrderColumn: orderCol,
		Attachments: attachments,
	})
}

// runOrders drives the text-order variant over one or more .txt exports.
func runOrders(ctx context.Context, cfg *config.Config, transport mailer.Transport, opts *runOptions, inputs []string) error {
	files := make(map[string][]byte, len(inputs))
	names := make([]string, 0, len(inputs))
	for _, path := range inputs {
		path = strings.TrimSpace(path)
		if path == "" {
			continue
		}
		data, readErr := os.ReadFile(path)
		if readErr != nil {
			return fmt.Errorf("failed to read input file: %w", readErr)
		}
		name := filepath.Base(path)
		files[name] = data
		names = append(names, name)
	}

	list, err := orders.ParseAll(files, names)
	if err != nil {
		return err
	}
	if len(list) == 0 {
		return fmt.Errorf("text exports: %w", pipeline.ErrEmptyResult)
	}
	slog.Info("orders parsed", "files", len(names), "orders", len(list))

	loader := directory.NewLoader(directoryPath(cfg.RestaurantDirectory, opts))
	orch := dispatch.NewOrchestrator(transport, loader, cfg.Sender, dispatch.ParseAddressList(opts.CC))

	result, err := orch.SendOrders(ctx, list)
	if result != nil {
		printSummary(result)
	}
	return err
}

func directoryPath(configured string, opts *runOptions) string {
	if opts.Directory != "" {
		return opts.Directory
	}
	return configured
}

// loadAttachments reads every regular file of the directory into memory,
// keyed by filename.
func loadAttachments(dir string) (map[string][]byte, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read attachments directory: %w", err)
	}

	attachments := make(map[string][]byte, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		data, err := os.ReadFile(filepath.Join(dir, e.Name()))
		if err != nil {
			return nil, fmt.Errorf("failed to read attachment %s: %w", e.Name(), err)
		}
		attachments[e.Name()] = data
	}
	return attachments, nil
}

// printSummary writes the operator-facing send log and the unresolved
// group list to stdout.
func printSummary(result *dispatch.Result) {
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)

	fmt.Fprintf(w, "\n%d e-mails enviados\n", len(result.Sent))
	if len(result.Sent) > 0 {
		fmt.Fprintln(w, "GRUPO\tPARA\tCC\tQTD")
		for _, e := range result.Sent {
			cc := e.Cc
			if cc == "" {
				cc = "-"
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%d\n", e.Group, e.To, cc, e.Rows)
		}
	}
	if len(result.Unresolved) > 0 {
		fmt.Fprintf(w, "\nGrupos sem e-mail cadastrado (%d):\n", len(result.Unresolved))
		for _, g := range result.Unresolved {
			fmt.Fprintf(w, "  %s\n", g)
		}
	}
	w.Flush()
}
