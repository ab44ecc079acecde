package domain

import (
	"slices"
	"strings"
)

// ChannelPolicy names the single channel a notification type is delivered on.
type ChannelPolicy string

const (
	ChannelPushOnly  ChannelPolicy = "PUSH_ONLY"
	ChannelInAppOnly ChannelPolicy = "IN_APP_ONLY"
)

// DisplayType is a client-side rendering hint.
type DisplayType string

const (
	DisplayModal  DisplayType = "MODAL"
	DisplayToast  DisplayType = "TOAST"
	DisplaySilent DisplayType = "SILENT"
)

// Category groups notification types for list filtering.
type Category string

const (
	CategoryReservation Category = "RESERVATION"
	CategoryContract    Category = "CONTRACT"
	CategoryCalendar    Category = "CALENDAR"
	CategoryReview      Category = "REVIEW"
	CategoryCouple      Category = "COUPLE"
	CategoryNotice      Category = "NOTICE"
)

// CategoryAll disables category filtering.
const CategoryAll = "all"

// NotificationType identifies a catalog entry. The zero value is not a valid type.
type NotificationType string

const (
	TypeReservationRequested NotificationType = "RESERVATION_REQUESTED"
	TypeReservationConfirmed NotificationType = "RESERVATION_CONFIRMED"
	TypeReservationCancelled NotificationType = "RESERVATION_CANCELLED"
	TypeContractCreated      NotificationType = "CONTRACT_CREATED"
	TypeContractUpdated      NotificationType = "CONTRACT_UPDATED"
	TypeCalendarEventCreated NotificationType = "CALENDAR_EVENT_CREATED"
	TypeCalendarReminder     NotificationType = "CALENDAR_EVENT_REMINDER"
	TypeReviewReplied        NotificationType = "REVIEW_REPLIED"
	TypePartnerConnected     NotificationType = "PARTNER_CONNECTED"
	TypeServiceNotice        NotificationType = "SERVICE_NOTICE"
	TypeEventPromotion       NotificationType = "EVENT_PROMOTION"
)

// TypeSpec is the static description of a notification type.
type TypeSpec struct {
	Type              NotificationType
	Category          Category
	TitleTemplate     string
	BodyTemplate      string
	Channel           ChannelPolicy
	Display           DisplayType
	CoupleShared      bool
	BroadcastEligible bool
}

var catalog = map[NotificationType]TypeSpec{
	TypeReservationRequested: {
		Category:      CategoryReservation,
		TitleTemplate: "예약 요청",
		BodyTemplate:  "'{vendorName}'에 {reservationDate} 상담 예약을 요청했어요.",
		Channel:       ChannelInAppOnly,
		Display:       DisplayToast,
		CoupleShared:  true,
	},
	TypeReservationConfirmed: {
		Category:      CategoryReservation,
		TitleTemplate: "예약 확정",
		BodyTemplate:  "'{vendorName}' 상담 예약이 확정되었어요.",
		Channel:       ChannelPushOnly,
		Display:       DisplayModal,
		CoupleShared:  true,
	},
	TypeReservationCancelled: {
		Category:      CategoryReservation,
		TitleTemplate: "예약 취소",
		BodyTemplate:  "'{vendorName}' 상담 예약이 취소되었어요.",
		Channel:       ChannelPushOnly,
		Display:       DisplayModal,
		CoupleShared:  true,
	},
	TypeContractCreated: {
		Category:      CategoryContract,
		TitleTemplate: "계약 등록",
		BodyTemplate:  "'{vendorName}' 계약서가 등록되었어요.",
		Channel:       ChannelInAppOnly,
		Display:       DisplayToast,
		CoupleShared:  true,
	},
	TypeContractUpdated: {
		Category:      CategoryContract,
		TitleTemplate: "계약 변경",
		BodyTemplate:  "'{vendorName}' 계약 내용이 변경되었어요.",
		Channel:       ChannelPushOnly,
		Display:       DisplayToast,
		CoupleShared:  true,
	},
	TypeCalendarEventCreated: {
		Category:      CategoryCalendar,
		TitleTemplate: "새 일정",
		BodyTemplate:  "{eventDate}에 '{eventTitle}' 일정이 추가되었어요.",
		Channel:       ChannelInAppOnly,
		Display:       DisplaySilent,
		CoupleShared:  true,
	},
	TypeCalendarReminder: {
		Category:      CategoryCalendar,
		TitleTemplate: "일정 알림",
		BodyTemplate:  "내일은 '{eventTitle}' 일정이 있어요.",
		Channel:       ChannelPushOnly,
		Display:       DisplayToast,
	},
	TypeReviewReplied: {
		Category:      CategoryReview,
		TitleTemplate: "리뷰 답글",
		BodyTemplate:  "'{vendorName}'에서 리뷰에 답글을 남겼어요.",
		Channel:       ChannelInAppOnly,
		Display:       DisplayToast,
	},
	TypePartnerConnected: {
		Category:      CategoryCouple,
		TitleTemplate: "커플 연결",
		BodyTemplate:  "{partnerName}님과 커플 연결이 완료되었어요.",
		Channel:       ChannelPushOnly,
		Display:       DisplayModal,
	},
	TypeServiceNotice: {
		Category:          CategoryNotice,
		TitleTemplate:     "공지사항",
		BodyTemplate:      "{noticeTitle}",
		Channel:           ChannelInAppOnly,
		Display:           DisplayModal,
		BroadcastEligible: true,
	},
	TypeEventPromotion: {
		Category:          CategoryNotice,
		TitleTemplate:     "이벤트",
		BodyTemplate:      "{eventTitle} 이벤트가 시작되었어요.",
		Channel:           ChannelPushOnly,
		Display:           DisplayToast,
		BroadcastEligible: true,
	},
}

func init() {
	for t, spec := range catalog {
		spec.Type = t
		catalog[t] = spec
	}
}

// Spec returns the catalog entry for t.
func (t NotificationType) Spec() (TypeSpec, bool) {
	spec, ok := catalog[t]
	return spec, ok
}

// Valid reports whether t is a catalog entry.
func (t NotificationType) Valid() bool {
	_, ok := catalog[t]
	return ok
}

// ParseNotificationType resolves a wire name into a catalog type.
func ParseNotificationType(s string) (NotificationType, error) {
	t := NotificationType(strings.ToUpper(strings.TrimSpace(s)))
	if !t.Valid() {
		return "", ErrUnknownNotificationType
	}
	return t, nil
}

// Catalog returns every registered type spec.
func Catalog() []TypeSpec {
	specs := make([]TypeSpec, 0, len(catalog))
	for _, spec := range catalog {
		specs = append(specs, spec)
	}
	slices.SortFunc(specs, func(a, b TypeSpec) int { return strings.Compare(string(a.Type), string(b.Type)) })
	return specs
}

// TypesInCategory resolves a category filter into the list of matching types.
// The second return value is false when no filtering should be applied.
func TypesInCategory(category string) ([]NotificationType, bool) {
	category = strings.TrimSpace(category)
	if category == "" || strings.EqualFold(category, CategoryAll) {
		return nil, false
	}

	var types []NotificationType
	for t, spec := range catalog {
		if strings.EqualFold(string(spec.Category), category) {
			types = append(types, t)
		}
	}
	slices.Sort(types)
	return types, true
}
