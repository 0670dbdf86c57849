package schema

// FallbackDescription returns the static e-commerce dataset description used
// when introspection is unavailable. It mirrors the reference dataset the
// engine ships demo data for, so generated SQL stays plausible even without
// a live connection.
func FallbackDescription() *Description {
	return &Description{
		Degraded: true,
		Tables: []Table{
			{
				Name: "users",
				Columns: []Column{
					{Name: "user_id", Type: "INTEGER", PrimaryKey: true},
					{Name: "username", Type: "VARCHAR(50)"},
					{Name: "email", Type: "VARCHAR(100)"},
					{Name: "phone", Type: "VARCHAR(20)", Nullable: true},
					{Name: "registration_date", Type: "TIMESTAMP"},
					{Name: "last_login", Type: "TIMESTAMP", Nullable: true},
					{Name: "status", Type: "VARCHAR(20)"}, // active, inactive, suspended
				},
			},
			{
				Name: "products",
				Columns: []Column{
					{Name: "product_id", Type: "INTEGER", PrimaryKey: true},
					{Name: "name", Type: "VARCHAR(200)"},
					{Name: "description", Type: "TEXT", Nullable: true},
					{Name: "category_id", Type: "INTEGER", ForeignKeyTarget: "categories.category_id"},
					{Name: "price", Type: "DECIMAL(10,2)"},
					{Name: "cost", Type: "DECIMAL(10,2)"},
					{Name: "inventory", Type: "INTEGER"},
					{Name: "created_at", Type: "TIMESTAMP"},
					{Name: "updated_at", Type: "TIMESTAMP"},
					{Name: "status", Type: "VARCHAR(20)"}, // active, discontinued
				},
			},
			{
				Name: "categories",
				Columns: []Column{
					{Name: "category_id", Type: "INTEGER", PrimaryKey: true},
					{Name: "name", Type: "VARCHAR(100)"},
					{Name: "parent_id", Type: "INTEGER", Nullable: true, ForeignKeyTarget: "categories.category_id"},
					{Name: "description", Type: "TEXT", Nullable: true},
				},
			},
			{
				Name: "orders",
				Columns: []Column{
					{Name: "order_id", Type: "INTEGER", PrimaryKey: true},
					{Name: "user_id", Type: "INTEGER", ForeignKeyTarget: "users.user_id"},
					{Name: "order_date", Type: "TIMESTAMP"},
					{Name: "total_amount", Type: "DECIMAL(12,2)"},
					{Name: "status", Type: "VARCHAR(20)"}, // pending, paid, shipped, delivered, canceled
					{Name: "shipping_address", Type: "TEXT"},
					{Name: "payment_method", Type: "VARCHAR(50)"},
				},
			},
			{
				Name: "order_items",
				Columns: []Column{
					{Name: "item_id", Type: "INTEGER", PrimaryKey: true},
					{Name: "order_id", Type: "INTEGER", ForeignKeyTarget: "orders.order_id"},
					{Name: "product_id", Type: "INTEGER", ForeignKeyTarget: "products.product_id"},
					{Name: "quantity", Type: "INTEGER"},
					{Name: "unit_price", Type: "DECIMAL(10,2)"},
					{Name: "discount", Type: "DECIMAL(10,2)"},
					{Name: "subtotal", Type: "DECIMAL(10,2)"},
				},
			},
			{
				Name: "reviews",
				Columns: []Column{
					{Name: "review_id", Type: "INTEGER", PrimaryKey: true},
					{Name: "product_id", Type: "INTEGER", ForeignKeyTarget: "products.product_id"},
					{Name: "user_id", Type: "INTEGER", ForeignKeyTarget: "users.user_id"},
					{Name: "rating", Type: "INTEGER"}, // 1-5
					{Name: "comment", Type: "TEXT", Nullable: true},
					{Name: "review_date", Type: "TIMESTAMP"},
					{Name: "helpful_votes", Type: "INTEGER"},
				},
			},
			{
				Name: "inventory_history",
				Columns: []Column{
					{Name: "history_id", Type: "INTEGER", PrimaryKey: true},
					{Name: "product_id", Type: "INTEGER", ForeignKeyTarget: "products.product_id"},
					{Name: "change_amount", Type: "INTEGER"}, // positive inbound, negative outbound
					{Name: "change_date", Type: "TIMESTAMP"},
					{Name: "reason", Type: "VARCHAR(100)"}, // purchase, sale, return, adjustment
					{Name: "operator", Type: "VARCHAR(50)"},
				},
			},
			{
				Name: "promotions",
				Columns: []Column{
					{Name: "promotion_id", Type: "INTEGER", PrimaryKey: true},
					{Name: "name", Type: "VARCHAR(100)"},
					{Name: "description", Type: "TEXT", Nullable: true},
					{Name: "discount_type", Type: "VARCHAR(20)"}, // percentage, fixed_amount
					{Name: "discount_value", Type: "DECIMAL(10,2)"},
					{Name: "start_date", Type: "TIMESTAMP"},
					{Name: "end_date", Type: "TIMESTAMP"},
					{Name: "active", Type: "BOOLEAN"},
				},
			},
			{
				Name: "returns",
				Columns: []Column{
					{Name: "return_id", Type: "INTEGER", PrimaryKey: true},
					{Name: "order_id", Type: "INTEGER", ForeignKeyTarget: "orders.order_id"},
					{Name: "product_id", Type: "INTEGER", ForeignKeyTarget: "products.product_id"},
					{Name: "return_date", Type: "TIMESTAMP"},
					{Name: "quantity", Type: "INTEGER"},
					{Name: "reason", Type: "TEXT", Nullable: true},
					{Name: "status", Type: "VARCHAR(20)"}, // pending, approved, rejected, refunded
					{Name: "refund_amount", Type: "DECIMAL(10,2)"},
				},
			},
			{
				Name: "suppliers",
				Columns: []Column{
					{Name: "supplier_id", Type: "INTEGER", PrimaryKey: true},
					{Name: "name", Type: "VARCHAR(100)"},
					{Name: "contact_person", Type: "VARCHAR(50)"},
					{Name: "email", Type: "VARCHAR(100)"},
					{Name: "phone", Type: "VARCHAR(20)"},
					{Name: "address", Type: "TEXT", Nullable: true},
					{Name: "status", Type: "VARCHAR(20)"}, // active, inactive
				},
			},
		},
	}
}
