package entity

import "time"

// Invoice is the persisted result of one successful pipeline run. Dates are
// kept as opaque strings: the source text is OCR/LLM output and is not
// reliable enough to parse into date types at write time.
type Invoice struct {
	ID              uint          `gorm:"primaryKey" json:"id"`
	CompanyName     *string       `gorm:"size:255" json:"company_name"`
	CompanyAddress  *string       `gorm:"type:text" json:"company_address"`
	CustomerName    *string       `gorm:"size:255" json:"customer_name"`
	CustomerAddress *string       `gorm:"type:text" json:"customer_address"`
	InvoiceNumber   *string       `gorm:"size:100" json:"invoice_number"`
	InvoiceDate     *string       `gorm:"size:100" json:"invoice_date"`
	DueDate         *string       `gorm:"size:100" json:"due_date"`
	TotalAmount     *float64      `json:"total_amount"`
	Taxes           *float64      `json:"taxes"`
	RawText         string        `gorm:"type:text" json:"raw_text,omitempty"`
	RawJSON         string        `gorm:"type:text" json:"raw_json,omitempty"`
	Items           []InvoiceItem `gorm:"foreignKey:InvoiceID;constraint:OnDelete:CASCADE" json:"items,omitempty"`
	CreatedAt       time.Time     `json:"created_at"`
}

// InvoiceItem is one line item owned by an Invoice. All business values are
// nullable: the coercion layer degrades anything unparseable to null.
type InvoiceItem struct {
	ID          uint     `gorm:"primaryKey" json:"id"`
	InvoiceID   uint     `gorm:"not null;index" json:"invoice_id"`
	Description *string  `gorm:"type:text" json:"description"`
	Quantity    *float64 `json:"quantity"`
	UnitPrice   *float64 `json:"unit_price"`
	Amount      *float64 `json:"amount"`
}

// TableName keeps the historical table names.
func (Invoice) TableName() string { return "invoices" }

func (InvoiceItem) TableName() string { return "invoice_items" }
