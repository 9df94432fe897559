package storage

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestURL_DefaultBucketForm(t *testing.T) {
	u := &S3Uploader{bucket: "campaign-assets", region: "ap-southeast-1"}
	assert.Equal(t,
		"https://campaign-assets.s3.ap-southeast-1.amazonaws.com/generated/a.png",
		u.URL("generated/a.png"))
}

func TestURL_PublicBaseOverride(t *testing.T) {
	u := &S3Uploader{bucket: "campaign-assets", region: "ap-southeast-1", publicBaseURL: "https://cdn.example.com"}
	assert.Equal(t, "https://cdn.example.com/generated/a.png", u.URL("generated/a.png"))
}

func TestNewS3Uploader_TrimsBaseURL(t *testing.T) {
	u := &S3Uploader{publicBaseURL: "https://cdn.example.com"}
	assert.Equal(t, "https://cdn.example.com/k", u.URL("k"))
}
