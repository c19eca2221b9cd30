package model

// Models lists every persisted model in migration order.
func Models() []any {
	return []any{
		&User{},
		&Space{},
		&Testimonial{},
	}
}
