package entity

import "fmt"

// Kind identifies an entity kind for business code generation
type Kind string

const (
	KindOpportunity     Kind = "OPPORTUNITY"
	KindContract        Kind = "CONTRACT"
	KindProject         Kind = "PROJECT"
	KindInvoice         Kind = "INVOICE"
	KindSupplierInvoice Kind = "SUPPLIER_INVOICE"
	KindPurchaseRequest Kind = "PURCHASE_REQUEST"
	KindExpenseRequest  Kind = "EXPENSE_REQUEST"
	KindVoucher         Kind = "VOUCHER"
)

var kindPrefixes = map[Kind]string{
	KindOpportunity:     "OPP",
	KindContract:        "CON",
	KindProject:         "PRJ",
	KindInvoice:         "INV",
	KindSupplierInvoice: "SUP",
	KindPurchaseRequest: "PR",
	KindExpenseRequest:  "ER",
	KindVoucher:         "VCH",
}

// Prefix returns the business code prefix for the kind
func (k Kind) Prefix() string {
	return kindPrefixes[k]
}

// IsValid returns true if the kind has a registered prefix
func (k Kind) IsValid() bool {
	_, ok := kindPrefixes[k]
	return ok
}

// Kinds returns all registered kinds
func Kinds() []Kind {
	return []Kind{
		KindOpportunity, KindContract, KindProject, KindInvoice,
		KindSupplierInvoice, KindPurchaseRequest, KindExpenseRequest, KindVoucher,
	}
}

// BusinessCode formats a serial as prefix + 6-digit zero-padded number
func BusinessCode(kind Kind, serial uint64) string {
	return fmt.Sprintf("%s%06d", kind.Prefix(), serial)
}
