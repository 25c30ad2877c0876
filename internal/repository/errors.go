package repository

import "errors"

// ErrDuplicateEmail はメールアドレスの一意制約違反を表す。
// サービス層でEMAIL_TAKENエラーに変換される。
var ErrDuplicateEmail = errors.New("email already registered")
