package entity

// CareType is the optional care category attached to a booking
type CareType struct {
	ID   int    `gorm:"primaryKey;autoIncrement" json:"id"`
	Name string `gorm:"type:varchar(100);not null" json:"name"`
}

func (CareType) TableName() string {
	return "care_types"
}
