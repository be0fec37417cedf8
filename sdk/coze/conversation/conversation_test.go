package conversation

import (
	"context"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/router-for-me/CozeSDK/internal/cozetest"
	"github.com/router-for-me/CozeSDK/sdk/coze/apierr"
	"github.com/router-for-me/CozeSDK/sdk/coze/chat"
	"github.com/router-for-me/CozeSDK/sdk/coze/client"
	"github.com/tidwall/gjson"
)

func newTestService(t *testing.T) (*Service, *cozetest.Server) {
	t.Helper()
	srv := cozetest.New(t)
	return NewService(client.New(srv.URL)), srv
}

func TestCRUD(t *testing.T) {
	svc, srv := newTestService(t)
	srv.Handle(http.MethodPost, "/v1/conversation/create", func(c *gin.Context) {
		cozetest.OK(c, gin.H{"id": "CV1", "created_at": 1700000000})
	})
	srv.Handle(http.MethodGet, "/v1/conversation/retrieve", func(c *gin.Context) {
		cozetest.OK(c, gin.H{"id": c.Query("conversation_id"), "name": "n"})
	})
	srv.Handle(http.MethodPut, "/v1/conversations/:id", func(c *gin.Context) {
		raw, _ := c.GetRawData()
		cozetest.OK(c, gin.H{"id": c.Param("id"), "name": gjson.GetBytes(raw, "name").String()})
	})
	srv.Handle(http.MethodDelete, "/v1/conversations/:id", func(c *gin.Context) { cozetest.OK(c, nil) })
	srv.Handle(http.MethodPost, "/v1/conversations/:id/clear", func(c *gin.Context) {
		cozetest.OK(c, gin.H{"id": "S2", "conversation_id": c.Param("id")})
	})
	ctx := context.Background()

	created, err := svc.Create(ctx, CreateRequest{BotID: "B", Messages: []chat.Message{chat.UserText("hi")}})
	if err != nil || created.ID != "CV1" {
		t.Fatalf("Create() = %+v, %v", created, err)
	}
	req, _ := srv.Last("/v1/conversation/create")
	if gjson.GetBytes(req.Body, "bot_id").String() != "B" || gjson.GetBytes(req.Body, "messages.0.content").String() != "hi" {
		t.Fatalf("create body = %s", req.Body)
	}

	got, err := svc.Retrieve(ctx, "CV1")
	if err != nil || got.ID != "CV1" {
		t.Fatalf("Retrieve() = %+v, %v", got, err)
	}
	updated, err := svc.Update(ctx, "CV1", "renamed")
	if err != nil || updated.Name != "renamed" {
		t.Fatalf("Update() = %+v, %v", updated, err)
	}
	if err = svc.Delete(ctx, "CV1"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	section, err := svc.Clear(ctx, "CV1")
	if err != nil || section.ConversationID != "CV1" || section.ID != "S2" {
		t.Fatalf("Clear() = %+v, %v", section, err)
	}
}

func TestList(t *testing.T) {
	svc, srv := newTestService(t)
	srv.Handle(http.MethodGet, "/v1/conversations", func(c *gin.Context) {
		cozetest.OK(c, gin.H{"conversations": []gin.H{{"id": "CV1"}, {"id": "CV2"}}, "has_more": true})
	})

	res, err := svc.List(context.Background(), ListRequest{BotID: "B"})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(res.Conversations) != 2 || !res.HasMore {
		t.Fatalf("List() = %+v", res)
	}
	req, _ := srv.Last("/v1/conversations")
	if req.Query.Get("page_size") != "20" || req.Query.Get("page_num") != "1" || req.Query.Get("bot_id") != "B" {
		t.Fatalf("query = %v", req.Query)
	}

	for _, size := range []int{-1, 51} {
		if _, err = svc.List(context.Background(), ListRequest{BotID: "B", PageSize: size}); !apierr.IsKind(err, apierr.KindValidation) {
			t.Fatalf("List(page size %d) err = %v, want validation", size, err)
		}
	}
	if n := srv.Count("/v1/conversations"); n != 1 {
		t.Fatalf("list calls = %d, want 1", n)
	}
}

func TestListMessages(t *testing.T) {
	svc, srv := newTestService(t)
	srv.Handle(http.MethodPost, "/v1/conversation/message/list", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"code": 0, "msg": "",
			"data":     []gin.H{{"id": "M1", "role": "user", "content": "hi"}},
			"first_id": "M1", "last_id": "M1", "has_more": false,
		})
	})

	res, err := svc.ListMessages(context.Background(), MessageListRequest{ConversationID: "CV1", Limit: 10})
	if err != nil {
		t.Fatalf("ListMessages: %v", err)
	}
	if len(res.Messages) != 1 || res.FirstID != "M1" || res.Messages[0].Role != chat.RoleUser {
		t.Fatalf("ListMessages() = %+v", res)
	}
	req, _ := srv.Last("/v1/conversation/message/list")
	if req.Query.Get("conversation_id") != "CV1" || gjson.GetBytes(req.Body, "limit").Int() != 10 {
		t.Fatalf("request = %v %s", req.Query, req.Body)
	}

	_, err = svc.ListMessages(context.Background(), MessageListRequest{ConversationID: "CV1", BeforeID: "a", AfterID: "b"})
	if !apierr.IsKind(err, apierr.KindValidation) {
		t.Fatalf("err = %v, want validation", err)
	}
}

func TestValidationMakesNoCalls(t *testing.T) {
	svc, srv := newTestService(t)
	ctx := context.Background()

	if _, err := svc.Retrieve(ctx, ""); !apierr.IsKind(err, apierr.KindValidation) {
		t.Fatalf("Retrieve err = %v", err)
	}
	if err := svc.Delete(ctx, " "); !apierr.IsKind(err, apierr.KindValidation) {
		t.Fatalf("Delete err = %v", err)
	}
	if _, err := svc.List(ctx, ListRequest{}); !apierr.IsKind(err, apierr.KindValidation) {
		t.Fatalf("List err = %v", err)
	}
	if n := len(srv.Requests()); n != 0 {
		t.Fatalf("network calls = %d, want 0", n)
	}
}
