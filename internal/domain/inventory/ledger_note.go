package inventory

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/medstock/backend/internal/domain/shared/valueobject"
)

// Tagged ledger lines look like
//
//	[Stock Out - 2025-01-31]: Consumed 5 boxes from batch ID <id>. Reason: expired.
//	[Bulk Stock Release - 2025-01-31 | Voucher: BRV-...]: Released 5 boxes to "Ward A" from batch ID <id>. Reason: N/A.
//
// Parsing is anchored at the start of the line and ignores case.
// Anything after the quantity is optional.

const noteDatePattern = `(?P<date>\d{4}-\d{2}-\d{2})`

var (
	inNotePattern = regexp.MustCompile(
		`(?i)^\[\s*(?P<tag>initial stock|stock addition|bulk add stock)\s*-\s*` + noteDatePattern + `\s*\]:\s*added\s+(?P<qty>\d+)`)
	stockOutNotePattern = regexp.MustCompile(
		`(?i)^\[\s*stock out\s*-\s*` + noteDatePattern + `\s*\]:\s*consumed\s+(?P<qty>\d+)`)
	releaseNotePattern = regexp.MustCompile(
		`(?i)^\[\s*stock release\s*-\s*` + noteDatePattern + `\s*\]:\s*released\s+(?P<qty>\d+)`)
	bulkReleaseNotePattern = regexp.MustCompile(
		`(?i)^\[\s*bulk stock release\s*-\s*` + noteDatePattern + `\s*\|\s*voucher:\s*(?P<voucher>[^\]]*?)\s*\]:\s*released\s+(?P<qty>\d+)`)

	tagPrefixPattern = regexp.MustCompile(
		`(?i)^\s*\[\s*(initial stock|stock addition|bulk add stock|stock out|stock release|bulk stock release)\s*-\s*\d{4}-\d{2}-\d{2}`)
)

// NoteEntry is a ledger event recovered from a note line
type NoteEntry struct {
	Kind      MovementKind
	Date      valueobject.Date
	Quantity  int64
	VoucherID string
}

// FormatNote renders the tagged note line for a movement. Free text follows
// the "Added ..." sentence of inbound kinds and is ignored for outbound ones.
// User text is folded onto the tagged line so it can never start a line of its own.
func FormatNote(m Movement, freeText string) string {
	date := m.Date.String()
	m.Unit = singleLine(m.Unit)
	switch m.Kind {
	case MovementInitialStock, MovementStockAddition, MovementBulkAddStock:
		line := fmt.Sprintf("[%s - %s]: Added %d %s.", m.Kind.Tag(), date, m.Quantity, m.Unit)
		if text := singleLine(freeText); text != "" {
			line += " " + text
		}
		return line
	case MovementStockOut:
		return fmt.Sprintf("[%s - %s]: Consumed %d %s from batch ID %s. Reason: %s.",
			m.Kind.Tag(), date, m.Quantity, m.Unit, m.BatchID, reasonText(m.Reason))
	case MovementStockRelease:
		return fmt.Sprintf("[%s - %s]: Released %d %s to %q from batch ID %s. Reason: %s.",
			m.Kind.Tag(), date, m.Quantity, m.Unit, m.Recipient, m.BatchID, reasonText(m.Reason))
	case MovementBulkStockRelease:
		return fmt.Sprintf("[%s - %s | Voucher: %s]: Released %d %s to %q from batch ID %s. Reason: %s.",
			m.Kind.Tag(), date, m.VoucherID, m.Quantity, m.Unit, m.Recipient, m.BatchID, reasonText(m.Reason))
	}
	return ""
}

func reasonText(reason string) string {
	reason = strings.TrimRight(singleLine(reason), ".")
	if reason == "" {
		return "N/A"
	}
	return reason
}

// singleLine collapses every run of whitespace, line breaks included, to one space
func singleLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// MovementNoteFormatter returns a NoteFormatter that tags each drained batch
// with the template's kind, date, recipient, reason and voucher.
func MovementNoteFormatter(tmpl Movement) NoteFormatter {
	return func(b *Batch, quantity int64, unit string) string {
		m := tmpl.forBatch(b.ID, quantity)
		m.Unit = unit
		return FormatNote(m, "")
	}
}

// HasLedgerTag reports whether notes already start with a tagged ledger line.
func HasLedgerTag(notes string) bool {
	return tagPrefixPattern.MatchString(notes)
}

// ParseNoteLine recovers a ledger event from a single line.
// Lines that do not match the grammar, or carry an impossible date, yield false.
func ParseNoteLine(line string) (NoteEntry, bool) {
	line = strings.TrimSpace(line)
	if line == "" || line[0] != '[' {
		return NoteEntry{}, false
	}

	if m := inNotePattern.FindStringSubmatch(line); m != nil {
		kind := kindForInTag(m[inNotePattern.SubexpIndex("tag")])
		return buildEntry(kind, m[inNotePattern.SubexpIndex("date")], m[inNotePattern.SubexpIndex("qty")], "")
	}
	if m := stockOutNotePattern.FindStringSubmatch(line); m != nil {
		return buildEntry(MovementStockOut,
			m[stockOutNotePattern.SubexpIndex("date")], m[stockOutNotePattern.SubexpIndex("qty")], "")
	}
	if m := releaseNotePattern.FindStringSubmatch(line); m != nil {
		return buildEntry(MovementStockRelease,
			m[releaseNotePattern.SubexpIndex("date")], m[releaseNotePattern.SubexpIndex("qty")], "")
	}
	if m := bulkReleaseNotePattern.FindStringSubmatch(line); m != nil {
		return buildEntry(MovementBulkStockRelease,
			m[bulkReleaseNotePattern.SubexpIndex("date")], m[bulkReleaseNotePattern.SubexpIndex("qty")],
			m[bulkReleaseNotePattern.SubexpIndex("voucher")])
	}
	return NoteEntry{}, false
}

// ParseNotes returns every ledger event found in a notes log, in append order.
func ParseNotes(notes string) []NoteEntry {
	if notes == "" {
		return nil
	}
	var entries []NoteEntry
	for _, line := range strings.Split(notes, "\n") {
		if e, ok := ParseNoteLine(line); ok {
			entries = append(entries, e)
		}
	}
	return entries
}

func kindForInTag(tag string) MovementKind {
	switch strings.ToLower(strings.Join(strings.Fields(tag), " ")) {
	case "initial stock":
		return MovementInitialStock
	case "bulk add stock":
		return MovementBulkAddStock
	default:
		return MovementStockAddition
	}
}

func buildEntry(kind MovementKind, date, qty, voucher string) (NoteEntry, bool) {
	d, err := valueobject.ParseDate(date)
	if err != nil {
		return NoteEntry{}, false
	}
	q, err := strconv.ParseInt(qty, 10, 64)
	if err != nil {
		return NoteEntry{}, false
	}
	return NoteEntry{Kind: kind, Date: d, Quantity: q, VoucherID: voucher}, true
}
