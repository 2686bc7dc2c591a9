package models

// RefSequence is the per-movement-kind counter behind reference numbers. The
// row is advanced with a locking UPDATE so concurrent creates never share a
// value.
type RefSequence struct {
	Kind      string `gorm:"column:kind;primaryKey"`
	LastValue int64  `gorm:"column:last_value;not null;default:0"`
}
