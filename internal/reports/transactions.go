// Package reports renders spreadsheet exports.
package reports

import (
	"fmt"
	"io"

	"github.com/ukydev/fleet-maintenance/internal/models"
	"github.com/xuri/excelize/v2"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

const timestampLayout = "2006-01-02 15:04:05"

var transactionHeader = []interface{}{"timestamp", "item", "type", "vehicle", "user", "notes"}

// TransactionLog writes the movement log of one part as an xlsx workbook.
func TransactionLog(w io.Writer, part *models.Part, items []models.InventoryItem, txs []models.InventoryTransaction) error {
	identifiers := make(map[primitive.ObjectID]int, len(items))
	for _, item := range items {
		identifiers[item.ID] = item.ItemIdentifier
	}

	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	sheet := f.GetSheetName(f.GetActiveSheetIndex())
	if part.Name != "" {
		name := sheetName(part.Name)
		if err := f.SetSheetName(sheet, name); err != nil {
			return fmt.Errorf("rename sheet: %w", err)
		}
		sheet = name
	}

	if err := f.SetSheetRow(sheet, "A1", &transactionHeader); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for i, tx := range txs {
		vehicle := ""
		if tx.RelatedVehicleID != nil {
			vehicle = tx.RelatedVehicleID.Hex()
		}
		row := []interface{}{
			tx.Timestamp.UTC().Format(timestampLayout),
			identifiers[tx.ItemID],
			string(tx.Type),
			vehicle,
			tx.UserID.Hex(),
			tx.Notes,
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("write row %d: %w", i+2, err)
		}
	}
	if err := f.SetColWidth(sheet, "A", "A", 20); err != nil {
		return err
	}
	if err := f.SetColWidth(sheet, "F", "F", 60); err != nil {
		return err
	}
	return f.Write(w)
}

// sheetName trims a part name to the 31 characters Excel allows, dropping forbidden runes.
func sheetName(name string) string {
	out := make([]rune, 0, len(name))
	for _, r := range name {
		switch r {
		case ':', '\\', '/', '?', '*', '[', ']':
			continue
		}
		out = append(out, r)
		if len(out) == 31 {
			break
		}
	}
	if len(out) == 0 {
		return "Transactions"
	}
	return string(out)
}
