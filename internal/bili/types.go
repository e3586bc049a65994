package bili

import "fmt"

// Every platform response wraps its payload in the same envelope: code 0 is
// success, anything else is an application error with a human-readable
// message.
type apiResponse[T any] struct {
	Code    int64  `json:"code"`
	Message string `json:"message"`
	Data    T      `json:"data"`
}

// Err converts a non-zero envelope code into an *APIError.
func (r apiResponse[T]) Err() error {
	if r.Code == 0 {
		return nil
	}
	return &APIError{Code: r.Code, Message: r.Message}
}

// APIError is an application-level rejection from the platform. Rate limits
// and stale signatures are indistinguishable from the response alone, so the
// retry layer treats these like transport faults.
type APIError struct {
	Code    int64
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error %d: %s", e.Code, e.Message)
}

// Signature rejection on signed endpoints; triggers a key refresh.
const codeSignatureRejected = -403

// FollowGroup is one follow tag, including the platform-default groups.
// Snapshot per run, never persisted.
type FollowGroup struct {
	TagID int64  `json:"tagid"`
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// Creator is one followed uploader inside a group.
type Creator struct {
	Mid   int64  `json:"mid"`
	Uname string `json:"uname"`
}

// VideoSummary is one entry of a creator's video listing page, most recent
// first.
type VideoSummary struct {
	Bvid  string `json:"bvid"`
	Title string `json:"title"`
}

// VideoDetail enriches a summary with publish metadata. Cid identifies the
// default content stream for any later media resolution.
type VideoDetail struct {
	Bvid     string `json:"bvid"`
	Title    string `json:"title"`
	Pubdate  int64  `json:"pubdate"`
	Duration int64  `json:"duration"`
	Cid      int64  `json:"cid"`
}

// navData is the account snapshot from the nav endpoint. The wbi_img URLs
// carry the signing key fragments in their file names and are served to
// anonymous sessions too, so the envelope code is not checked when only keys
// are wanted.
type navData struct {
	IsLogin bool   `json:"isLogin"`
	Mid     int64  `json:"mid"`
	Uname   string `json:"uname"`
	WbiImg  struct {
		ImgURL string `json:"img_url"`
		SubURL string `json:"sub_url"`
	} `json:"wbi_img"`
}

type qrGenerateData struct {
	QrcodeKey string `json:"qrcode_key"`
	URL       string `json:"url"`
}

// qrPollData carries the inner login-flow code, distinct from the envelope
// code: 0 success, 86038 expired, 86090 scanned but unconfirmed.
type qrPollData struct {
	Code    int64  `json:"code"`
	Message string `json:"message"`
}

const (
	qrCodeSuccess = 0
	qrCodeExpired = 86038
	qrCodeScanned = 86090
)

type relationTagsData []FollowGroup

type arcSearchData struct {
	List struct {
		Vlist []VideoSummary `json:"vlist"`
	} `json:"list"`
}
