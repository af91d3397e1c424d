package domain

type NotificationKind string

const (
	NotifySuccess NotificationKind = "success"
	NotifyError   NotificationKind = "error"
	NotifyWarning NotificationKind = "warning"
	NotifyConfirm NotificationKind = "confirm"
)

// CatalogChange is emitted by an admin instance after a product CRUD call
// so that other sessions reload the catalog.
type CatalogChange struct {
	ProductID string
	Kind      string
}
