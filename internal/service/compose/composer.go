package compose

import (
	"encoding/json"
	"fmt"

	"github.com/pobredward/inschoolz-push-api/internal/model"
)

// AnonymousLabel replaces the actor's display name whenever the context
// marks the acting user as anonymous. Board posts on the platform are
// anonymous by default, so this is the common case.
const AnonymousLabel = "익명"

const (
	channelComments   = "comments"
	channelSocial     = "social"
	channelModeration = "moderation"
	channelMarketing  = "marketing"
	channelDefault    = "default"
)

// Composer builds one envelope template per notification event. The
// template is destination-independent; the dispatcher binds tokens.
type Composer struct{}

func New() *Composer {
	return &Composer{}
}

// Compose maps a kind tag and its context to a title/body/payload
// template. Kinds outside the known set are not rejected; they get
// generic formatting. The payload carries the context fields unchanged
// so the client can deep-link from the raw data.
func (c *Composer) Compose(kind model.Kind, nc model.Context) *model.Envelope {
	title, body := c.render(kind, nc)
	channel := channelFor(kind)

	return &model.Envelope{
		Title:     title,
		Body:      body,
		Data:      payload(kind, nc),
		Sound:     "default",
		Priority:  "high",
		ChannelID: channel,
		Android: &model.AndroidHints{
			ChannelID: channel,
			Priority:  "high",
		},
		IOS: &model.IOSHints{
			Sound:      "default",
			CategoryID: channel,
		},
	}
}

func (c *Composer) render(kind model.Kind, nc model.Context) (title, body string) {
	name := actorName(nc)

	switch kind {
	case model.KindPostComment:
		return "새 댓글", fmt.Sprintf("%s님이 회원님의 게시글에 댓글을 남겼습니다.", name)
	case model.KindCommentReply:
		return "새 답글", fmt.Sprintf("%s님이 회원님의 댓글에 답글을 남겼습니다.", name)
	case model.KindLike:
		return "좋아요", fmt.Sprintf("%s님이 회원님의 게시글을 좋아합니다.", name)
	case model.KindFollow:
		return "새 팔로워", fmt.Sprintf("%s님이 회원님을 팔로우하기 시작했습니다.", name)
	case model.KindReferral:
		return "추천인 등록", fmt.Sprintf("%s님이 회원님을 추천인으로 등록했습니다.", name)
	case model.KindWarning:
		if nc.Reason != "" {
			return "경고", fmt.Sprintf("커뮤니티 이용 규칙 위반으로 경고를 받았습니다: %s", nc.Reason)
		}
		return "경고", "커뮤니티 이용 규칙 위반으로 경고를 받았습니다."
	case model.KindSuspension:
		if nc.Days > 0 {
			return "이용 정지", fmt.Sprintf("계정이 %d일 동안 정지되었습니다.", nc.Days)
		}
		return "이용 정지", "계정이 정지되었습니다."
	case model.KindReportReceived:
		return "신고 접수", "신고가 접수되었습니다. 검토 후 처리 결과를 알려드립니다."
	case model.KindReportResolved:
		return "신고 처리 완료", "접수하신 신고가 처리되었습니다."
	case model.KindSystem:
		return orDefault(nc.Title, "시스템 알림"), orDefault(nc.Body, "새로운 시스템 알림이 있습니다.")
	case model.KindGeneral, model.KindEvent:
		return orDefault(nc.Title, "알림"), orDefault(nc.Body, "새로운 알림이 있습니다.")
	default:
		// Advisory enumeration: unknown kinds compose generically.
		return orDefault(nc.Title, "알림"), orDefault(nc.Body, orDefault(nc.Preview, "새로운 알림이 있습니다."))
	}
}

// channelFor is total over all kinds: unmapped kinds get the default
// channel rather than a runtime miss.
func channelFor(kind model.Kind) string {
	switch kind {
	case model.KindPostComment, model.KindCommentReply:
		return channelComments
	case model.KindLike, model.KindFollow, model.KindReferral:
		return channelSocial
	case model.KindWarning, model.KindSuspension, model.KindReportReceived, model.KindReportResolved:
		return channelModeration
	case model.KindEvent:
		return channelMarketing
	default:
		return channelDefault
	}
}

func actorName(nc model.Context) string {
	if nc.IsAnonymous || nc.AuthorName == "" {
		return AnonymousLabel
	}
	return nc.AuthorName
}

func orDefault(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}

// payload converts the context to the envelope data map via its JSON
// form, so re-parsing the payload yields the original fields unchanged.
func payload(kind model.Kind, nc model.Context) map[string]interface{} {
	data := make(map[string]interface{})
	raw, err := json.Marshal(nc)
	if err == nil {
		_ = json.Unmarshal(raw, &data)
	}
	data["kind"] = string(kind)
	return data
}
