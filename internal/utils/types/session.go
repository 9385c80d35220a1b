package types

type Session struct {
	UserId   string `json:"userId"`
	JTI      string `json:"jti"`
	IssueAt  int64  `json:"issue_at"`
	ExpireAt int64  `json:"expire_at"`
	Status   string `json:"status"`
}
