package shared

import "fmt"

// DocumentLockKey builds the redis key guarding mutations of one document.
func DocumentLockKey(docType string, id int64) string {
	return fmt.Sprintf("sellerdesk:%s:%d:lock", docType, id)
}

// InvoiceGenerationLockKey guards invoice generation for a purchase order.
func InvoiceGenerationLockKey(poID int64) string {
	return fmt.Sprintf("sellerdesk:po:%d:invoice:lock", poID)
}
