package models

// All lists every persisted model, in dependency order, for sqlite schema bootstrap.
func All() []any {
	return []any{
		&MerchantCategory{},
		&ProductCategory{},
		&Merchant{},
		&Product{},
		&Coupon{},
		&Customer{},
		&Cart{},
		&Order{},
		&LineItem{},
		&Favorite{},
		&PasswordResetToken{},
		&OutboxEvent{},
	}
}
