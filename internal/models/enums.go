package models

import "fmt"

// DocumentCategory is the document type an approval rule applies to.
// Values are persisted and matched at the wire level as-is.
type DocumentCategory string

const (
	CategoryPurchaseRequest DocumentCategory = "purchase_request"
	CategoryPurchaseOrder   DocumentCategory = "purchase_order"
	CategoryContracts       DocumentCategory = "contracts"
	CategoryCapex           DocumentCategory = "capex"
	CategoryPayments        DocumentCategory = "payments"
	CategoryFloatCash       DocumentCategory = "float_cash"
)

var documentCategories = []DocumentCategory{
	CategoryPurchaseRequest,
	CategoryPurchaseOrder,
	CategoryContracts,
	CategoryCapex,
	CategoryPayments,
	CategoryFloatCash,
}

// ParseDocumentCategory validates a wire-level category string
func ParseDocumentCategory(s string) (DocumentCategory, error) {
	for _, c := range documentCategories {
		if string(c) == s {
			return c, nil
		}
	}
	return "", fmt.Errorf("unknown document category %q", s)
}

// Valid reports whether the category is one of the known values
func (c DocumentCategory) Valid() bool {
	_, err := ParseDocumentCategory(string(c))
	return err == nil
}

// Workflow status constants
const (
	WorkflowStatusPending      = "pending"
	WorkflowStatusApproved     = "approved"
	WorkflowStatusRejected     = "rejected"
	WorkflowStatusEscalated    = "escalated"
	WorkflowStatusAutoApproved = "auto_approved"
)

// WorkflowAction status constants
const (
	ActionStatusPending  = "pending"
	ActionStatusApproved = "approved"
	ActionStatusRejected = "rejected"
)

// RoleRequest status constants
const (
	RoleRequestStatusPending  = "pending"
	RoleRequestStatusApproved = "approved"
	RoleRequestStatusRejected = "rejected"
)

// AppRole is the user-facing application role, distinct from ApprovalRole
type AppRole string

const (
	AppRoleAdmin            AppRole = "admin"
	AppRoleProcurementAdmin AppRole = "procurement_admin"
	AppRoleManager          AppRole = "manager"
	AppRoleBuyer            AppRole = "buyer"
	AppRoleApprover         AppRole = "approver"
	AppRoleViewer           AppRole = "viewer"
)

// ParseAppRole validates a wire-level role string
func ParseAppRole(s string) (AppRole, error) {
	switch AppRole(s) {
	case AppRoleAdmin, AppRoleProcurementAdmin, AppRoleManager, AppRoleBuyer, AppRoleApprover, AppRoleViewer:
		return AppRole(s), nil
	}
	return "", fmt.Errorf("unknown app role %q", s)
}

// RFQ status constants
const (
	RFQStatusOpen      = "open"
	RFQStatusCompleted = "completed"
)

// Purchase request status constants
const (
	PurchaseRequestStatusDraft     = "draft"
	PurchaseRequestStatusSubmitted = "submitted"
)

// categoryLabels holds the presentation strings per language code.
// The domain code never depends on these; they exist for API consumers
// that render bilingual UIs.
var categoryLabels = map[DocumentCategory]map[string]string{
	CategoryPurchaseRequest: {"en": "Purchase Request", "ar": "طلب شراء"},
	CategoryPurchaseOrder:   {"en": "Purchase Order", "ar": "أمر شراء"},
	CategoryContracts:       {"en": "Contracts", "ar": "العقود"},
	CategoryCapex:           {"en": "Capital Expenditure", "ar": "النفقات الرأسمالية"},
	CategoryPayments:        {"en": "Payments", "ar": "المدفوعات"},
	CategoryFloatCash:       {"en": "Petty Cash", "ar": "النثرية"},
}

// Label returns the display label for a category in the given language,
// falling back to English, then to the raw value.
func (c DocumentCategory) Label(lang string) string {
	labels, ok := categoryLabels[c]
	if !ok {
		return string(c)
	}
	if l, ok := labels[lang]; ok {
		return l
	}
	return labels["en"]
}

var workflowStatusLabels = map[string]map[string]string{
	WorkflowStatusPending:      {"en": "Pending", "ar": "قيد الانتظار"},
	WorkflowStatusApproved:     {"en": "Approved", "ar": "معتمد"},
	WorkflowStatusRejected:     {"en": "Rejected", "ar": "مرفوض"},
	WorkflowStatusEscalated:    {"en": "Escalated", "ar": "مُصعّد"},
	WorkflowStatusAutoApproved: {"en": "Auto Approved", "ar": "معتمد تلقائيا"},
}

// WorkflowStatusLabel returns the display label for a workflow status
func WorkflowStatusLabel(status, lang string) string {
	labels, ok := workflowStatusLabels[status]
	if !ok {
		return status
	}
	if l, ok := labels[lang]; ok {
		return l
	}
	return labels["en"]
}
