// Package orders parses the fixed-layout text exports produced by the
// restaurant order system (Central de Pedidos). Fields are separated by
// runs of two or more spaces; the files arrive Latin-1 encoded.
package orders

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/felipeCordeiroDosSantos/AutomailerEvelog/internal/input"
)

// Order is one parsed order line.
type Order struct {
	Restaurant    string
	Number        string
	Date          string
	Item          string
	Quantity      string
	Description   string
	PriceBRL      string
	PriceUSD      string // optional, present only in export layouts that carry it
	Responsible   string
	Observation   string // optional free text between responsible and OC
	PurchaseOrder string
	TaxID         string
	SourceFile    string
}

var (
	fieldSep = regexp.MustCompile(`\s{2,}`)
	priceRe  = regexp.MustCompile(`^[\d.,]+$`)
)

// ParseFile parses one text export. The first line is a column header and
// is skipped; blank lines and lines that do not fit the layout are dropped
// silently, matching the original parser.
func ParseFile(name string, data []byte) ([]Order, error) {
	decoded, err := input.DecodeText(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}

	lines := strings.Split(string(decoded), "\n")
	var out []Order
	for _, line := range lines[min(1, len(lines)):] {
		o, ok := parseLine(strings.TrimRight(line, "\r"), name)
		if ok {
			out = append(out, o)
		}
	}
	return out, nil
}

// ParseAll concatenates the orders of several files in input order.
func ParseAll(files map[string][]byte, order []string) ([]Order, error) {
	var out []Order
	for _, name := range order {
		parsed, err := ParseFile(name, files[name])
		if err != nil {
			return nil, err
		}
		out = append(out, parsed...)
	}
	return out, nil
}

func parseLine(line, source string) (Order, bool) {
	line = strings.TrimSpace(line)
	if line == "" {
		return Order{}, false
	}

	parts := fieldSep.Split(line, -1)
	// Seven leading fixed fields, then an optional USD price, the
	// responsible party, optional observation, and the trailing OC + CNPJ.
	if len(parts) < 7 {
		return Order{}, false
	}

	o := Order{
		Restaurant:  parts[0],
		Number:      parts[1],
		Date:        parts[2],
		Item:        parts[3],
		Quantity:    parts[4],
		Description: parts[5],
		PriceBRL:    parts[6],
		SourceFile:  source,
	}

	idx := 7
	if idx < len(parts) && priceRe.MatchString(parts[idx]) {
		o.PriceUSD = parts[idx]
		idx++
	}
	if idx >= len(parts) {
		return Order{}, false
	}
	o.Responsible = parts[idx]
	idx++

	if len(parts) > idx+2 {
		o.Observation = strings.Join(parts[idx:len(parts)-2], " ")
	}
	o.PurchaseOrder = parts[len(parts)-2]
	o.TaxID = parts[len(parts)-1]

	return o, true
}
