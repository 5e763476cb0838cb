// Package export renders catalog and order reports as xlsx workbooks.
package export

import (
	"fmt"
	"io"

	"github.com/shopspring/decimal"
	"github.com/tealeg/xlsx"

	"github.com/Skotchmaster/evocart/internal/models"
	"github.com/Skotchmaster/evocart/internal/order"
)

const ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

const timeLayout = "2006-01-02 15:04:05"

func Products(w io.Writer, products []models.Product) error {
	file := xlsx.NewFile()
	sheet, err := file.AddSheet("Products")
	if err != nil {
		return fmt.Errorf("add sheet: %w", err)
	}

	header(sheet, "ID", "Name", "Category", "Description", "Price", "Image", "Exclusive", "Best seller", "Created at", "Updated at")
	for _, p := range products {
		row := sheet.AddRow()
		row.AddCell().SetInt(int(p.ID))
		row.AddCell().SetString(p.Name)
		row.AddCell().SetString(p.Category)
		row.AddCell().SetString(p.Description)
		money(row.AddCell(), p.Price)
		row.AddCell().SetString(p.ImageURL)
		row.AddCell().SetBool(p.IsExclusiveOffer)
		row.AddCell().SetBool(p.IsBestSeller)
		row.AddCell().SetString(p.CreatedAt.UTC().Format(timeLayout))
		row.AddCell().SetString(p.UpdatedAt.UTC().Format(timeLayout))
	}

	return file.Write(w)
}

func Orders(w io.Writer, rows []order.Summary) error {
	file := xlsx.NewFile()
	sheet, err := file.AddSheet("Orders")
	if err != nil {
		return fmt.Errorf("add sheet: %w", err)
	}

	header(sheet, "Order ID", "User ID", "Customer", "Subtotal", "Shipping", "Tax", "Grand total", "Status", "Order date")
	for _, o := range rows {
		row := sheet.AddRow()
		row.AddCell().SetInt(int(o.ID))
		row.AddCell().SetInt(int(o.UserID))
		row.AddCell().SetString(o.UserName)
		money(row.AddCell(), o.Subtotal)
		money(row.AddCell(), o.Shipping)
		money(row.AddCell(), o.Tax)
		money(row.AddCell(), o.GrandTotal)
		row.AddCell().SetString(o.Status)
		row.AddCell().SetString(o.OrderDate.UTC().Format(timeLayout))
	}

	return file.Write(w)
}

func header(sheet *xlsx.Sheet, names ...string) {
	row := sheet.AddRow()
	for _, n := range names {
		row.AddCell().SetString(n)
	}
}

func money(c *xlsx.Cell, d decimal.Decimal) {
	c.SetFloatWithFormat(d.Round(2).InexactFloat64(), "0.00")
}
