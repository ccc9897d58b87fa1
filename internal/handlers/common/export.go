package common

import (
	"encoding/csv"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"depot/internal/audit"
)

// ExportInventory exports the product list to CSV or Excel.
func (h *Handler) ExportInventory(w http.ResponseWriter, r *http.Request) {
	format := r.URL.Query().Get("format")
	if format == "" {
		format = "csv"
	}

	query := "SELECT id,name,COALESCE(sku,''),price,stock,reorder_point,COALESCE(location,''),COALESCE(supplier_id,''),updated_at FROM products"
	if r.URL.Query().Get("low_stock") == "true" {
		query += " WHERE reorder_point > 0 AND stock <= reorder_point"
	}
	query += " ORDER BY name"

	rows, err := h.DB.Query(query)
	if err != nil {
		http.Error(w, err.Error(), 500)
		return
	}
	defer rows.Close()

	headers := []string{"ID", "Name", "SKU", "Price", "Stock", "Reorder Point", "Location", "Supplier", "Updated At"}
	var data [][]string

	for rows.Next() {
		var id, name, sku, location, supplierID, updatedAt string
		var price float64
		var stock, reorderPoint int
		rows.Scan(&id, &name, &sku, &price, &stock, &reorderPoint, &location, &supplierID, &updatedAt)
		data = append(data, []string{
			id, name, sku, fmt.Sprintf("%.2f", price), strconv.Itoa(stock),
			strconv.Itoa(reorderPoint), location, supplierID, updatedAt,
		})
	}

	audit.LogAudit(h.DB, h.Hub, audit.GetUsername(h.DB, r), "exported", "product", "",
		fmt.Sprintf("Exported %d product(s) as %s", len(data), format))

	if format == "xlsx" {
		ExportExcel(w, "Inventory", headers, data)
	} else {
		ExportCSV(w, "inventory.csv", headers, data)
	}
}

// ExportOrders exports orders to CSV or Excel.
func (h *Handler) ExportOrders(w http.ResponseWriter, r *http.Request) {
	format := r.URL.Query().Get("format")
	if format == "" {
		format = "csv"
	}

	status := r.URL.Query().Get("status")
	query := "SELECT id,client_id,status,total,COALESCE(created_by,''),created_at,updated_at FROM orders"
	var args []interface{}
	if status != "" {
		query += " WHERE status=?"
		args = append(args, status)
	}
	query += " ORDER BY created_at DESC"

	rows, err := h.DB.Query(query, args...)
	if err != nil {
		http.Error(w, err.Error(), 500)
		return
	}
	defer rows.Close()

	headers := []string{"ID", "Client", "Status", "Total", "Created By", "Created At", "Updated At"}
	var data [][]string

	for rows.Next() {
		var id, clientID, st, createdBy, createdAt, updatedAt string
		var total float64
		rows.Scan(&id, &clientID, &st, &total, &createdBy, &createdAt, &updatedAt)
		data = append(data, []string{id, clientID, st, fmt.Sprintf("%.2f", total), createdBy, createdAt, updatedAt})
	}

	audit.LogAudit(h.DB, h.Hub, audit.GetUsername(h.DB, r), "exported", "order", "",
		fmt.Sprintf("Exported %d order(s) as %s", len(data), format))

	if format == "xlsx" {
		ExportExcel(w, "Orders", headers, data)
	} else {
		ExportCSV(w, "orders.csv", headers, data)
	}
}

// ExportBackorders exports backorders to CSV or Excel.
func (h *Handler) ExportBackorders(w http.ResponseWriter, r *http.Request) {
	format := r.URL.Query().Get("format")
	if format == "" {
		format = "csv"
	}

	status := r.URL.Query().Get("status")
	query := "SELECT id,order_id,client_id,product_id,qty,status,COALESCE(purchase_order_id,''),created_at,COALESCE(fulfilled_at,'') FROM backorders"
	var args []interface{}
	if status != "" {
		query += " WHERE status=?"
		args = append(args, status)
	}
	query += " ORDER BY created_at DESC"

	rows, err := h.DB.Query(query, args...)
	if err != nil {
		http.Error(w, err.Error(), 500)
		return
	}
	defer rows.Close()

	headers := []string{"ID", "Order", "Client", "Product", "Qty", "Status", "PO", "Created At", "Fulfilled At"}
	var data [][]string

	for rows.Next() {
		var id, orderID, clientID, productID, st, poID, createdAt, fulfilledAt string
		var qty int
		rows.Scan(&id, &orderID, &clientID, &productID, &qty, &st, &poID, &createdAt, &fulfilledAt)
		data = append(data, []string{id, orderID, clientID, productID, strconv.Itoa(qty), st, poID, createdAt, fulfilledAt})
	}

	audit.LogAudit(h.DB, h.Hub, audit.GetUsername(h.DB, r), "exported", "backorder", "",
		fmt.Sprintf("Exported %d backorder(s) as %s", len(data), format))

	if format == "xlsx" {
		ExportExcel(w, "Backorders", headers, data)
	} else {
		ExportCSV(w, "backorders.csv", headers, data)
	}
}

// ExportCSV writes data to CSV format.
func ExportCSV(w http.ResponseWriter, filename string, headers []string, data [][]string) {
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%s", filename))

	writer := csv.NewWriter(w)
	defer writer.Flush()

	if err := writer.Write(headers); err != nil {
		http.Error(w, "Failed to write CSV headers", 500)
		return
	}

	for _, row := range data {
		if err := writer.Write(row); err != nil {
			http.Error(w, "Failed to write CSV row", 500)
			return
		}
	}
}

// ExportExcel writes data to Excel format.
func ExportExcel(w http.ResponseWriter, sheetName string, headers []string, data [][]string) {
	f := excelize.NewFile()
	defer f.Close()

	index, err := f.NewSheet(sheetName)
	if err != nil {
		http.Error(w, "Failed to create Excel sheet", 500)
		return
	}
	f.SetActiveSheet(index)

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#D3D3D3"}, Pattern: 1},
	})
	if err != nil {
		http.Error(w, "Failed to create header style", 500)
		return
	}

	for i, header := range headers {
		cell := fmt.Sprintf("%s1", string(rune('A'+i)))
		f.SetCellValue(sheetName, cell, header)
		f.SetCellStyle(sheetName, cell, cell, headerStyle)
	}

	for rowIdx, row := range data {
		for colIdx, value := range row {
			cell := fmt.Sprintf("%s%d", string(rune('A'+colIdx)), rowIdx+2)
			f.SetCellValue(sheetName, cell, value)
		}
	}

	for i := range headers {
		col := string(rune('A' + i))
		f.SetColWidth(sheetName, col, col, 15)
	}

	if sheetName != "Sheet1" {
		f.DeleteSheet("Sheet1")
	}

	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%s.xlsx", strings.ToLower(sheetName)))

	if err := f.Write(w); err != nil {
		http.Error(w, "Failed to write Excel file", 500)
		return
	}
}
