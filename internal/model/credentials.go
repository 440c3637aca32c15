package model

// Credentials はログイン手段を表す閉じたバリアント。
// LocalCredentials と FederatedProfile のみが実装する。
type Credentials interface {
	credentials()
}

// LocalCredentials はメールアドレスとパスワードによる認証情報。
type LocalCredentials struct {
	Email    string
	Password string
}

// FederatedProfile は外部IdPが解決したユーザープロフィール。
// Emailsには検証済みのメールアドレスのみを含める。
type FederatedProfile struct {
	Provider    string // "google"
	ExternalID  string
	DisplayName string
	Emails      []string
}

// PrimaryEmail は先頭の検証済みメールアドレスを返す。存在しない場合は空文字。
func (p FederatedProfile) PrimaryEmail() string {
	if len(p.Emails) == 0 {
		return ""
	}
	return p.Emails[0]
}

func (LocalCredentials) credentials() {}
func (FederatedProfile) credentials() {}
