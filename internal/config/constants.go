package config

// Default filesystem locations
const (
	// DefaultDatabasePath is the default path for the library database
	DefaultDatabasePath = "./library.db"

	// DefaultAvatarsDir is the default bucket for uploaded user avatars
	DefaultAvatarsDir = "./static/avatars"

	// DefaultCoversDir is the default bucket for uploaded book covers
	DefaultCoversDir = "./static/book_covers"
)
