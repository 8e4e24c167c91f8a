package model

type Country struct {
	ID   uint   `gorm:"primaryKey" json:"id"`
	Name string `gorm:"type:varchar(100);not null" json:"name"`
	ISO  string `gorm:"type:varchar(2);index" json:"iso"`
}

type District struct {
	ID        uint    `gorm:"primaryKey" json:"id"`
	Name      string  `gorm:"type:varchar(100);not null" json:"name"`
	CountryID uint    `gorm:"not null;index" json:"country"`
	Country   Country `gorm:"foreignKey:CountryID" json:"-"`
}

// DisasterType 即灾害类型 (hazard type)
type DisasterType struct {
	ID   uint   `gorm:"primaryKey" json:"id"`
	Name string `gorm:"type:varchar(100);not null" json:"name"`
}
