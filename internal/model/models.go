package model

// All returns every table managed by AutoMigrate, in dependency order.
func All() []interface{} {
	return []interface{}{
		&User{},
		&UserRefreshToken{},
		&Profile{},
		&ChatSession{},
		&ChatMessage{},
		&KnowledgeDocument{},
	}
}
