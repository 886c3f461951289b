package models

// All 参与建表的模型，顺序即依赖顺序
func All() []any {
	return []any{&User{}, &Credential{}, &Tool{}, &Project{}, &Loan{}, &Maintenance{}}
}
