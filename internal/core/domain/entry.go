package domain

import "time"

const (
	ENTRY_SOURCE_USER   = "user"
	ENTRY_SOURCE_IMPORT = "import"
)

// ConfigEntry is the persisted record of one MELCloud account.
type ConfigEntry struct {
	Id      string    `yaml:"entry_id" json:"entry_id"`
	Title   string    `yaml:"title" json:"title"`
	Source  string    `yaml:"source" json:"source"`
	Email   string    `yaml:"email" json:"email"`
	Token   string    `yaml:"token" json:"-"`
	Created time.Time `yaml:"created" json:"created"`
}
