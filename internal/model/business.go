package model

import "time"

// Business はローカル登録時にユーザーと同時作成される事業者レコードを表す。
// 登録トランザクション内で作成され、この層から更新・削除されることはない。
type Business struct {
	ID           string
	NIT          string // 税務登録番号。全事業者でユニーク。
	BusinessName string
	UserID       string // 登録時に作成されたユーザーのID
	CreatedAt    time.Time
}
