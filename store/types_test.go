package store

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/c360/feedbridge/errors"
)

func TestLink_Validate(t *testing.T) {
	valid := Link{ID: "l-1", ActorID: "actor-1", URL: "http://example.com/blog"}
	assert.NoError(t, valid.Validate())

	cases := []struct {
		name string
		link Link
	}{
		{"missing ID", Link{ActorID: "actor-1", URL: "http://example.com/"}},
		{"missing actor", Link{ID: "l-1", URL: "http://example.com/"}},
		{"missing URL", Link{ID: "l-1", ActorID: "actor-1"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.link.Validate()
			assert.Error(t, err)
			assert.True(t, errors.IsInvalid(err))
		})
	}
}

func TestSubscription_Validate(t *testing.T) {
	valid := Subscription{
		ID:    "s-1",
		Topic: "http://example.com/feed",
		Hub:   "http://hub.example.com/",
		State: StatePending,
	}
	assert.NoError(t, valid.Validate())

	invalid := valid
	invalid.State = "bogus"
	assert.Error(t, invalid.Validate())

	noHub := valid
	noHub.Hub = ""
	assert.Error(t, noHub.Validate())

	noTopic := valid
	noTopic.Topic = ""
	assert.Error(t, noTopic.Validate())
}

func TestSubscription_Verified(t *testing.T) {
	sub := Subscription{State: StatePending}
	assert.False(t, sub.Verified())

	sub.State = StateVerified
	assert.True(t, sub.Verified())
}

func TestSubscription_Reusable(t *testing.T) {
	cases := []struct {
		state    SubscriptionState
		reusable bool
	}{
		{StatePending, true},
		{StateVerified, true},
		{StateUnsubbed, false},
		{StateAbandoned, false},
	}
	for _, tc := range cases {
		sub := Subscription{State: tc.state}
		assert.Equal(t, tc.reusable, sub.Reusable(), string(tc.state))
	}
}

func TestRemoteObject_Validate(t *testing.T) {
	valid := RemoteObject{ID: "o-1", LinkID: "l-1", URL: "http://example.com/posts/1", Title: "A post"}
	assert.NoError(t, valid.Validate())

	noTitle := valid
	noTitle.Title = ""
	assert.Error(t, noTitle.Validate())

	noURL := valid
	noURL.URL = ""
	assert.Error(t, noURL.Validate())

	noLink := valid
	noLink.LinkID = ""
	assert.Error(t, noLink.Validate())
}

func TestObjectKey_Deterministic(t *testing.T) {
	a := ObjectKey("l-1", "http://example.com/posts/1")
	b := ObjectKey("l-1", "http://example.com/posts/1")
	c := ObjectKey("l-1", "http://example.com/posts/2")
	d := ObjectKey("l-2", "http://example.com/posts/1")

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
	assert.NotEqual(t, a, d)
	assert.Len(t, a, 64)
}
