package ingest

import (
	"fmt"
	"io"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/aclindsa/ofxgo"

	"github.com/Veraticus/autoprep/internal/model"
)

// ofxColumns fixes the tabular shape every OFX statement maps onto.
var ofxColumns = []struct {
	name string
	typ  model.ColumnType
}{
	{"date", model.TypeDatetime},
	{"amount", model.TypeNumeric},
	{"name", model.TypeText},
	{"type", model.TypeCategorical},
	{"memo", model.TypeText},
	{"check_number", model.TypeText},
}

// ReadOFX reads an OFX/QFX statement stream into a dataset named name, one
// row per transaction across all bank and credit card statements in the
// file.
func ReadOFX(r io.Reader, name string) (model.Dataset, error) {
	content, err := io.ReadAll(r)
	if err != nil {
		return model.Dataset{}, fmt.Errorf("failed to read OFX input: %w", err)
	}

	resp, err := ofxgo.ParseResponse(strings.NewReader(preprocessOFX(string(content))))
	if err != nil {
		return model.Dataset{}, fmt.Errorf("failed to parse OFX input: %w", err)
	}

	dataset := model.Dataset{Name: name, Columns: make([]model.Column, len(ofxColumns))}
	for i, col := range ofxColumns {
		dataset.Columns[i] = model.Column{Name: col.name, Type: col.typ}
	}

	var bankStmts, ccStmts int
	for _, msg := range resp.Bank {
		if stmt, ok := msg.(*ofxgo.StatementResponse); ok {
			bankStmts++
			if stmt.BankTranList == nil {
				continue
			}
			for _, tx := range stmt.BankTranList.Transactions {
				appendTransaction(&dataset, tx)
			}
		}
	}
	for _, msg := range resp.CreditCard {
		if stmt, ok := msg.(*ofxgo.CCStatementResponse); ok {
			ccStmts++
			if stmt.BankTranList == nil {
				continue
			}
			for _, tx := range stmt.BankTranList.Transactions {
				appendTransaction(&dataset, tx)
			}
		}
	}

	slog.Info("Ingested OFX dataset",
		"dataset", name,
		"rows", dataset.RowCount(),
		"bank_statements", bankStmts,
		"cc_statements", ccStmts)

	return dataset, nil
}

// appendTransaction adds one transaction as a row, keeping all columns the
// same length. Empty OFX fields become nulls.
func appendTransaction(dataset *model.Dataset, tx ofxgo.Transaction) {
	amount, _ := tx.TrnAmt.Float64()

	values := []model.Cell{
		textCell(tx.DtPosted.Time.UTC().Format(time.RFC3339)),
		textCell(fmt.Sprintf("%.2f", amount)),
		textCell(transactionName(tx)),
		textCell(fmt.Sprintf("%v", tx.TrnType)),
		textCell(string(tx.Memo)),
		textCell(string(tx.CheckNum)),
	}
	for i := range dataset.Columns {
		dataset.Columns[i].Cells = append(dataset.Columns[i].Cells, values[i])
	}
}

func textCell(value string) model.Cell {
	if strings.TrimSpace(value) == "" {
		return model.NullCell()
	}
	return model.Cell{Value: value}
}

// transactionName prefers the payee name when present; the NAME field on
// many statements is a processor artifact.
func transactionName(tx ofxgo.Transaction) string {
	if tx.Payee != nil && tx.Payee.Name != "" {
		return string(tx.Payee.Name)
	}
	name := strings.TrimSpace(string(tx.Name))
	if name == "" {
		return strings.TrimSpace(string(tx.Memo))
	}
	return name
}

// preprocessOFX fixes common formatting issues in OFX files before parsing.
func preprocessOFX(content string) string {
	// Trim any leading whitespace or blank lines before the header
	content = strings.TrimLeft(content, " \t\r\n")

	// Fix mixed-case SEVERITY values (should be INFO, WARN, or ERROR)
	severityRegex := regexp.MustCompile(`(?i)<SEVERITY>(Info|Warn|Error)</SEVERITY>`)
	content = severityRegex.ReplaceAllStringFunc(content, strings.ToUpper)

	// Fix missing closing angle brackets in SGML-style OFX files:
	// opening tags alone on a line with no closing bracket.
	tagFixRegex := regexp.MustCompile(`(?m)^(\s*<[A-Z][A-Z0-9._]*[A-Z0-9])$`)
	content = tagFixRegex.ReplaceAllString(content, "$1>")

	return content
}
