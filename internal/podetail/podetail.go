// Package podetail parses and renders purchase-order detail blobs.
//
// The backend renders PO details as a fixed line grammar:
//
//	PO Number: <po>
//	<blank>
//	- <item name>
//	  Item Number: <num>
//	  Bin Location: <loc>
//
// with the three item lines repeating once per line item.
package podetail

import (
	"errors"
	"fmt"
	"strings"
)

const (
	headerPrefix     = "PO Number: "
	namePrefix       = "- "
	itemNumberPrefix = "  Item Number: "
	binPrefix        = "  Bin Location: "
)

// ErrMalformedBlob indicates a detail blob that does not follow the fixed
// grammar: a missing header, a dangling partial item group, or an item line
// without its expected prefix.
var ErrMalformedBlob = errors.New("malformed PO detail blob")

// LineItem is one received line item on a purchase order.
type LineItem struct {
	Name        string
	ItemNumber  string
	BinLocation string
}

// Record is a fully parsed purchase-order detail blob.
type Record struct {
	PONumber string
	Items    []LineItem
}

// Parse decodes a detail blob into a Record. Item order follows blob order;
// duplicates are preserved. Any grammar violation fails with ErrMalformedBlob.
func Parse(blob string) (Record, error) {
	lines := strings.Split(blob, "\n")
	if len(lines) == 0 || !strings.HasPrefix(lines[0], headerPrefix) {
		return Record{}, fmt.Errorf("%w: missing %q header", ErrMalformedBlob, strings.TrimSpace(headerPrefix))
	}

	record := Record{PONumber: strings.TrimPrefix(lines[0], headerPrefix)}

	itemLines := make([]string, 0, len(lines))
	for _, line := range lines[1:] {
		if strings.TrimSpace(line) == "" {
			continue
		}
		itemLines = append(itemLines, line)
	}

	if len(itemLines)%3 != 0 {
		return Record{}, fmt.Errorf("%w: %d item lines, want a multiple of 3", ErrMalformedBlob, len(itemLines))
	}

	for i := 0; i < len(itemLines); i += 3 {
		name, err := stripPrefix(itemLines[i], namePrefix)
		if err != nil {
			return Record{}, err
		}
		itemNumber, err := stripPrefix(itemLines[i+1], itemNumberPrefix)
		if err != nil {
			return Record{}, err
		}
		binLocation, err := stripPrefix(itemLines[i+2], binPrefix)
		if err != nil {
			return Record{}, err
		}
		record.Items = append(record.Items, LineItem{
			Name:        name,
			ItemNumber:  itemNumber,
			BinLocation: binLocation,
		})
	}

	return record, nil
}

func stripPrefix(line string, prefix string) (string, error) {
	if !strings.HasPrefix(line, prefix) {
		return "", fmt.Errorf("%w: line %q missing prefix %q", ErrMalformedBlob, line, prefix)
	}
	return strings.TrimPrefix(line, prefix), nil
}

// String renders the record back into the canonical blob form, so that
// Parse(r.String()) reproduces r.
func (r Record) String() string {
	var b strings.Builder
	b.WriteString(headerPrefix)
	b.WriteString(r.PONumber)
	b.WriteString("\n")
	for _, item := range r.Items {
		b.WriteString("\n")
		b.WriteString(namePrefix)
		b.WriteString(item.Name)
		b.WriteString("\n")
		b.WriteString(itemNumberPrefix)
		b.WriteString(item.ItemNumber)
		b.WriteString("\n")
		b.WriteString(binPrefix)
		b.WriteString(item.BinLocation)
	}
	return b.String()
}

// Table renders an operator-facing listing of the record's line items.
func (r Record) Table() string {
	var b strings.Builder
	fmt.Fprintf(&b, "PO Number: %s\n", r.PONumber)
	fmt.Fprintf(&b, "%-30s %-15s %s\n", "Item Name", "Item Number", "Bin Location")
	for _, item := range r.Items {
		fmt.Fprintf(&b, "%-30s %-15s %s\n", item.Name, item.ItemNumber, item.BinLocation)
	}
	return strings.TrimSuffix(b.String(), "\n")
}
