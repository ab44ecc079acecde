package http

import (
	"time"

	"github.com/weddly/wedding-planner/internal/modules/notification/domain"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

type NotificationResponse struct {
	ID               int64     `json:"id"`
	Category         string    `json:"category"`
	Type             string    `json:"type"`
	DisplayType      string    `json:"displayType"`
	Title            string    `json:"title"`
	Content          string    `json:"content"`
	TargetDomainType string    `json:"targetDomainType"`
	TargetDomainID   int64     `json:"targetDomainId"`
	IsRead           bool      `json:"isRead"`
	CreatedAt        time.Time `json:"createdAt"`
}

type PageResponse struct {
	Items         []NotificationResponse `json:"items"`
	Page          int                    `json:"page"`
	Size          int                    `json:"size"`
	TotalElements int                    `json:"totalElements"`
	HasNext       bool                   `json:"hasNext"`
}

type BroadcastRequest struct {
	Key              string            `json:"key"`
	Type             string            `json:"type"`
	Arguments        map[string]string `json:"arguments"`
	TargetDomainType string            `json:"targetDomainType"`
	TargetDomainID   int64             `json:"targetDomainId"`
}

type BroadcastAccepted struct {
	Key string `json:"key"`
}

func toResponse(n domain.Notification) NotificationResponse {
	resp := NotificationResponse{
		ID:               n.ID,
		Type:             string(n.Type),
		Title:            n.Title,
		Content:          n.Body,
		TargetDomainType: string(n.TargetDomainType),
		TargetDomainID:   n.TargetDomainID,
		IsRead:           n.IsRead,
		CreatedAt:        n.CreatedAt,
	}
	if spec, ok := n.Type.Spec(); ok {
		resp.Category = string(spec.Category)
		resp.DisplayType = string(spec.Display)
	}
	return resp
}

func toPageResponse(p domain.Page) PageResponse {
	items := make([]NotificationResponse, 0, len(p.Items))
	for _, n := range p.Items {
		items = append(items, toResponse(n))
	}
	return PageResponse{
		Items:         items,
		Page:          p.Page,
		Size:          p.Size,
		TotalElements: p.TotalElements,
		HasNext:       p.HasNext(),
	}
}
