package constants

// Recognized top-level keys in the structured-fields object returned by the
// language model. The extraction prompt asks for exactly these.
const (
	FieldCompanyName     = "Company Name"
	FieldCompanyAddress  = "Company Address"
	FieldCustomerName    = "Customer Name"
	FieldCustomerAddress = "Customer Address"
	FieldInvoiceNumber   = "Invoice Number"
	FieldInvoiceDate     = "Invoice Date"
	FieldDueDate         = "Due Date"
	FieldDescription     = "Description"
	FieldQuantity        = "Quantity"
	FieldUnitPrice       = "Unit Price"
	FieldTaxes           = "Taxes"
	FieldAmount          = "Amount"
	FieldTotal           = "Total"
)

// FieldKeys lists the recognized keys in prompt order.
var FieldKeys = []string{
	FieldCompanyName,
	FieldCompanyAddress,
	FieldCustomerName,
	FieldCustomerAddress,
	FieldInvoiceNumber,
	FieldInvoiceDate,
	FieldDueDate,
	FieldDescription,
	FieldQuantity,
	FieldUnitPrice,
	FieldTaxes,
	FieldAmount,
	FieldTotal,
}

// RegionSeparator joins per-region OCR text before it is handed to the
// language model. The literal spacing is part of the wire contract.
const RegionSeparator = "   |||   "

// DetectionThreshold is the minimum confidence score a detected region must
// carry to survive to text extraction. There is no per-class threshold.
const DetectionThreshold = 0.5
