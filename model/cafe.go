package model

import "time"

// Cafe is one listing. Rows are hard-deleted so a removed name can be reused.
type Cafe struct {
	ID           uint      `json:"id" gorm:"primaryKey;autoIncrement"`
	Name         string    `json:"name" gorm:"size:80;not null;uniqueIndex"`
	MapURL       string    `json:"map_url" gorm:"size:250;not null"`
	ImgURL       string    `json:"img_url" gorm:"size:250;not null"`
	Location     string    `json:"location" gorm:"size:500;not null"`
	HasSockets   bool      `json:"has_sockets" gorm:"not null;default:false"`
	HasToilet    bool      `json:"has_toilet" gorm:"not null;default:false"`
	HasWifi      bool      `json:"has_wifi" gorm:"not null;default:false"`
	CanTakeCalls bool      `json:"can_take_calls" gorm:"not null;default:false"`
	Seats        *string   `json:"seats" gorm:"size:30"`
	CoffeePrice  *string   `json:"coffee_price" gorm:"size:30"`
	CreatedAt    time.Time `json:"created_at"`
}

func (c Cafe) String() string {
	return "<Cafe " + c.Name + ">"
}

// SeatsText and PriceText flatten the nullable columns for rendering.
func (c Cafe) SeatsText() string {
	if c.Seats == nil {
		return ""
	}
	return *c.Seats
}

func (c Cafe) PriceText() string {
	if c.CoffeePrice == nil {
		return ""
	}
	return *c.CoffeePrice
}
