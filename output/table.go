// Package output renders rule-cache contents, access-decision traces, and
// TLV decodes as terminal tables.
package output

import (
	"encoding/hex"
	"fmt"
	"os"
	"sort"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"ace/cache"
	"ace/gpdo"
	"ace/tlv"
)

var (
	colorHeader  = text.Colors{text.FgCyan, text.Bold}
	colorLabel   = text.Colors{text.FgYellow}
	colorValue   = text.Colors{text.FgWhite}
	colorSuccess = text.Colors{text.FgGreen}
	colorError   = text.Colors{text.FgRed}
	colorWarn    = text.Colors{text.FgYellow}
	colorAllow   = text.Colors{text.FgHiGreen}
	colorDeny    = text.Colors{text.FgHiRed}
)

func getTableStyle() table.Style {
	style := table.StyleRounded
	style.Color.Header = colorHeader
	style.Color.Row = text.Colors{text.FgWhite}
	style.Color.RowAlternate = text.Colors{text.FgHiWhite}
	style.Options.SeparateRows = false
	return style
}

func newTable() table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.SetStyle(getTableStyle())
	return t
}

func aidString(aid gpdo.AidRef) string {
	switch {
	case aid.IsSpecific():
		return hex.EncodeToString(aid.AID())
	case aid.IsAllSE():
		return "(any SE application)"
	default:
		return "(default application)"
	}
}

func hashString(h gpdo.HashRef) string {
	if h.IsAll() {
		return "(any device application)"
	}
	return hex.EncodeToString(h.Hash())
}

func verdictString(v cache.Verdict) string {
	switch v {
	case cache.Allowed:
		return colorAllow.Sprint("ALLOW")
	case cache.Denied:
		return colorDeny.Sprint("DENY")
	default:
		return colorWarn.Sprint("UNDEFINED")
	}
}

// PrintRuleCache renders every rule currently held in c, sorted by AID then
// hash for deterministic output.
func PrintRuleCache(c *cache.Cache) {
	tag, ok := c.RefreshTag()
	PrintRuleEntries(c.Entries(), tag, ok)
}

// PrintRuleEntries renders a snapshot of cached rules (as returned by
// enforcer.Enforcer.Cache) sorted by AID then hash, for the "rules list"
// CLI command.
func PrintRuleEntries(entries []cache.Entry, refreshTag [8]byte, hasTag bool) {
	fmt.Println()
	t := newTable()
	t.SetTitle(fmt.Sprintf("ACCESS RULE CACHE (%d rules)", len(entries)))
	t.AppendHeader(table.Row{"AID", "Hash", "APDU", "NFC", "Reason"})
	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 1, Colors: colorLabel, WidthMin: 20},
		{Number: 2, Colors: colorValue, WidthMin: 20},
		{Number: 3, WidthMin: 10},
		{Number: 4, WidthMin: 10},
		{Number: 5, Colors: colorValue, WidthMax: 40},
	})

	sort.Slice(entries, func(i, j int) bool {
		ai, aj := aidString(entries[i].Ref.Aid), aidString(entries[j].Ref.Aid)
		if ai != aj {
			return ai < aj
		}
		return hashString(entries[i].Ref.Hash) < hashString(entries[j].Ref.Hash)
	})

	if len(entries) == 0 {
		t.AppendRow(table.Row{"-", "(cache empty)", "-", "-", "-"})
	}
	for _, e := range entries {
		t.AppendRow(table.Row{
			aidString(e.Ref.Aid),
			hashString(e.Ref.Hash),
			verdictString(e.Access.ApduAccess),
			verdictString(e.Access.NfcAccess),
			e.Access.Reason,
		})
	}
	t.Render()
	if hasTag {
		fmt.Printf("\nRefresh tag: %s\n", hex.EncodeToString(refreshTag[:]))
	} else {
		fmt.Println("\nRefresh tag: (unset)")
	}
}

// PrintAccessDecision renders the outcome of one FindAccessRule lookup,
// for the "simulate" CLI command.
func PrintAccessDecision(aid []byte, certHashes [][]byte, ca cache.ChannelAccess, found bool) {
	fmt.Println()
	t := newTable()
	t.SetTitle("ACCESS RULE LOOKUP")
	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 1, Colors: colorLabel, WidthMin: 18},
		{Number: 2, Colors: colorValue, WidthMin: 55},
	})

	aidStr := "(default application)"
	if len(aid) > 0 {
		aidStr = hex.EncodeToString(aid)
	}
	t.AppendRow(table.Row{"AID", aidStr})
	for i, h := range certHashes {
		t.AppendRow(table.Row{fmt.Sprintf("Cert hash %d", i), hex.EncodeToString(h)})
	}
	if !found {
		t.AppendRow(table.Row{"Result", colorWarn.Sprint("no matching rule (caller default-denied)")})
		t.Render()
		return
	}
	t.AppendRow(table.Row{"APDU access", verdictString(ca.ApduAccess)})
	t.AppendRow(table.Row{"NFC access", verdictString(ca.NfcAccess)})
	if ca.Reason != "" {
		t.AppendRow(table.Row{"Reason", ca.Reason})
	}
	if ca.UseFilter {
		t.AppendRow(table.Row{"Filters", fmt.Sprintf("%d APDU header/mask pair(s)", len(ca.Filters))})
	}
	t.Render()
}

// PrintTLVTree renders a flat walk of raw as top-level BER-TLV elements,
// for the "decode" CLI command.
func PrintTLVTree(raw []byte) error {
	elems, err := tlv.DecodeAll(raw)
	if err != nil {
		return err
	}

	fmt.Println()
	t := newTable()
	t.SetTitle("TLV DECODE")
	t.AppendHeader(table.Row{"Tag", "Length", "Value"})
	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 1, Colors: colorLabel, WidthMin: 8},
		{Number: 2, Colors: colorValue, WidthMin: 8},
		{Number: 3, Colors: colorValue, WidthMax: 70},
	})
	for _, e := range elems {
		tagStr := fmt.Sprintf("%02X", e.Tag)
		if e.TagLen == 2 {
			tagStr = fmt.Sprintf("%04X", e.Tag)
		}
		t.AppendRow(table.Row{tagStr, e.Length, hex.EncodeToString(e.Value)})
	}
	t.Render()
	return nil
}

// PrintReaderInfo prints the opened terminal's name and ATR.
func PrintReaderInfo(terminalName string, atr []byte, present bool) {
	fmt.Println()
	t := newTable()
	t.SetTitle("TERMINAL")
	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 1, Colors: colorLabel, WidthMin: 15},
		{Number: 2, Colors: colorValue, WidthMin: 50},
	})
	t.AppendRow(table.Row{"Name", terminalName})
	presentStr := colorSuccess.Sprint("yes")
	if !present {
		presentStr = colorError.Sprint("no")
	}
	t.AppendRow(table.Row{"Card present", presentStr})
	if len(atr) > 0 {
		t.AppendRow(table.Row{"ATR", hex.EncodeToString(atr)})
	}
	t.Render()
}

// PrintReaderList prints the available PC/SC readers.
func PrintReaderList(readers []string) {
	fmt.Println()
	t := newTable()
	t.SetTitle("AVAILABLE SMART CARD READERS")
	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 1, Colors: colorLabel, WidthMin: 8},
		{Number: 2, Colors: colorValue, WidthMin: 50},
	})
	if len(readers) == 0 {
		t.AppendRow(table.Row{"Status", colorWarn.Sprint("No readers found")})
	} else {
		for i, r := range readers {
			t.AppendRow(table.Row{fmt.Sprintf("[%d]", i), r})
		}
	}
	t.Render()
}

// PrintError prints an error message.
func PrintError(msg string) {
	fmt.Println(colorError.Sprintf("✗ Error: %s", msg))
}

// PrintSuccess prints a success message.
func PrintSuccess(msg string) {
	fmt.Println(colorSuccess.Sprintf("✓ %s", msg))
}

// PrintWarning prints a warning message.
func PrintWarning(msg string) {
	fmt.Println(colorWarn.Sprintf("⚠ %s", msg))
}
