package model

import "time"

const (
	PersonStatusActive   = "active"
	PersonStatusInactive = "inactive"
)

type Person struct {
	PersonID      uint      `gorm:"column:person_id;primaryKey" json:"person_id"`
	Name          string    `gorm:"size:64;not null;index:idx_person_name_birth" json:"name"`
	DateOfBirth   string    `gorm:"size:32;index:idx_person_name_birth" json:"date_of_birth"`
	Gender        string    `gorm:"size:16" json:"gender"`
	Occupation    string    `gorm:"size:128" json:"occupation"`
	HealthInfo    string    `gorm:"type:text" json:"health_info"`
	BloodType     string    `gorm:"size:8" json:"blood_type"`
	MBTI          string    `gorm:"column:mbti;size:8" json:"mbti"`
	FavoriteColor string    `gorm:"size:32" json:"favorite_color"`
	Season        string    `gorm:"size:16" json:"season"`
	Personality   string    `gorm:"type:text" json:"personality"`
	FacePhotoURL  string    `gorm:"column:face_photo_url;size:1024" json:"face_photo_url"`
	Email         string    `gorm:"size:128" json:"email"`
	PhoneNumber   string    `gorm:"size:32" json:"phone_number"`
	Nationality   string    `gorm:"size:64" json:"nationality"`
	Address       string    `gorm:"size:255" json:"address"`
	Hometown      string    `gorm:"size:128" json:"hometown"`
	Biography     string    `gorm:"type:text" json:"biography"`
	Status        string    `gorm:"size:16;not null;default:active" json:"status"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

func (Person) TableName() string { return "persons" }

// PersonWritableColumns lists the profile columns the extractor may set.
var PersonWritableColumns = map[string]struct{}{
	"name":           {},
	"date_of_birth":  {},
	"gender":         {},
	"occupation":     {},
	"health_info":    {},
	"blood_type":     {},
	"mbti":           {},
	"favorite_color": {},
	"season":         {},
	"personality":    {},
	"face_photo_url": {},
	"email":          {},
	"phone_number":   {},
	"nationality":    {},
	"address":        {},
	"hometown":       {},
	"biography":      {},
	"status":         {},
}
