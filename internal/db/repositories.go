package db

// Repositories provides access to all database repositories
type Repositories struct {
	Channels *ChannelRepository
	Events   *EventRepository
}

// NewRepositories creates a new repository collection
func NewRepositories(db *DB) *Repositories {
	return &Repositories{
		Channels: NewChannelRepository(db),
		Events:   NewEventRepository(db),
	}
}
