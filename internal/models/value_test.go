package models_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"photo-studio-backend/internal/models"
)

func TestValues_UnmarshalJSON(t *testing.T) {
	var vs models.Values
	err := json.Unmarshal([]byte(`{"subject":"cat","steps":28,"upscale":true,"tags":["a","b"]}`), &vs)
	require.NoError(t, err)

	s, ok := vs["subject"].AsString()
	assert.True(t, ok)
	assert.Equal(t, "cat", s)

	n, ok := vs["steps"].AsNumber()
	assert.True(t, ok)
	assert.Equal(t, 28.0, n)

	b, ok := vs["upscale"].AsBool()
	assert.True(t, ok)
	assert.True(t, b)

	l, ok := vs["tags"].AsList()
	assert.True(t, ok)
	assert.Equal(t, []string{"a", "b"}, l)
}

func TestValues_RejectsOpenShapes(t *testing.T) {
	cases := map[string]string{
		"object":     `{"x":{"nested":1}}`,
		"null":       `{"x":null}`,
		"mixed list": `{"x":["a",1]}`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			var vs models.Values
			err := json.Unmarshal([]byte(body), &vs)
			assert.Error(t, err)
			assert.Contains(t, err.Error(), `"x"`)
		})
	}
}

func TestValue_TextAndNative(t *testing.T) {
	assert.Equal(t, "1.5", models.Number(1.5).Text())
	assert.Equal(t, "30", models.Number(30).Text())
	assert.Equal(t, int64(30), models.Number(30).Native())
	assert.Equal(t, "red, blue", models.List("red", "blue").Text())
	assert.Equal(t, "false", models.Bool(false).Text())
}

func TestValue_MarshalRoundTrip(t *testing.T) {
	in := models.Values{"steps": models.Number(4), "style": models.String("noir")}
	data, err := json.Marshal(in)
	require.NoError(t, err)

	var out models.Values
	require.NoError(t, json.Unmarshal(data, &out))
	assert.True(t, out["steps"].Equal(in["steps"]))
	assert.True(t, out["style"].Equal(in["style"]))
}

func TestValueOf(t *testing.T) {
	v, err := models.ValueOf([]any{"x", "y"})
	require.NoError(t, err)
	assert.True(t, v.Equal(models.List("x", "y")))

	v, err = models.ValueOf(int64(7))
	require.NoError(t, err)
	assert.True(t, v.Equal(models.Number(7)))

	_, err = models.ValueOf(map[string]any{})
	assert.Error(t, err)
}

func TestUpdatePhotoRequest_Mutation(t *testing.T) {
	album := "album-2"
	order := 1

	m, err := models.UpdatePhotoRequest{AlbumID: &album}.Mutation()
	require.NoError(t, err)
	assert.Equal(t, models.MovePhoto{AlbumID: album}, m)

	m, err = models.UpdatePhotoRequest{DisplayOrder: &order}.Mutation()
	require.NoError(t, err)
	assert.Equal(t, models.RepositionPhoto{DisplayOrder: 1}, m)

	_, err = models.UpdatePhotoRequest{}.Mutation()
	assert.ErrorIs(t, err, models.ErrEmptyMutation)
}

func TestOptional_DistinguishesAbsentAndNull(t *testing.T) {
	var patch models.ProjectPatch
	require.NoError(t, json.Unmarshal([]byte(`{"description":null}`), &patch))

	assert.False(t, patch.Name.Set)
	assert.True(t, patch.Description.Set)
	assert.Nil(t, patch.Description.Value)
	assert.False(t, patch.Color.Set)
}

func TestWebhookPayload_ErrorShapes(t *testing.T) {
	var native models.WebhookPayload
	require.NoError(t, json.Unmarshal([]byte(`{"request_id":"r1","status":"ERROR","error":"nsfw content"}`), &native))
	require.NotNil(t, native.Error)
	assert.Equal(t, "nsfw content", native.Error.Message)

	var normalized models.WebhookPayload
	require.NoError(t, json.Unmarshal([]byte(`{"request_id":"r1","status":"failed","error":{"code":"GENERATION_FAILED","message":"boom"}}`), &normalized))
	require.NotNil(t, normalized.Error)
	assert.Equal(t, "boom", normalized.Error.Message)

	var ok models.WebhookPayload
	require.NoError(t, json.Unmarshal([]byte(`{"request_id":"r1","status":"OK","payload":{"images":[{"url":"https://x/y.png","width":8,"height":8}]}}`), &ok))
	assert.Nil(t, ok.Error)
	require.NotNil(t, ok.Output())
	assert.Len(t, ok.Output().Images, 1)
}
