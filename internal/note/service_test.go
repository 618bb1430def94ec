package note

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/studysync/studysync/internal/forms"
	"github.com/studysync/studysync/internal/store"
)

func validYouTubeForm() Form {
	return Form{
		Topic:        "Dynamic programming patterns",
		Subject:      "DSA",
		Description:  "A walkthrough of the classic DP patterns.",
		ResourceURL:  "https://www.youtube.com/watch?v=oBt53YbR9Kk",
		ResourceType: TypeYouTube,
	}
}

func validDriveForm() Form {
	return Form{
		Topic:        "OS interview notes",
		Subject:      "Core CS",
		ResourceURL:  "https://drive.google.com/file/d/1abc/view",
		ResourceType: TypeDrive,
	}
}

func TestSubmit_AcceptsMatchingURLAndType(t *testing.T) {
	svc := NewService(store.NewMemory())
	ctx := context.Background()

	for _, f := range []Form{validYouTubeForm(), validDriveForm()} {
		id, err := svc.Submit(ctx, "u1", "Asha", f)
		require.NoError(t, err)
		require.NotEmpty(t, id)
	}

	// short-form youtu.be links and docs.google.com links count too
	f := validYouTubeForm()
	f.ResourceURL = "https://youtu.be/oBt53YbR9Kk"
	_, err := svc.Submit(ctx, "u1", "Asha", f)
	require.NoError(t, err)

	f = validDriveForm()
	f.ResourceURL = "https://docs.google.com/document/d/1abc/edit"
	_, err = svc.Submit(ctx, "u1", "Asha", f)
	require.NoError(t, err)
}

// The URL rule is selected by the declared type: a well-formed URL of the
// wrong shape is rejected before any write.
func TestSubmit_RejectsMismatchedURLAndType(t *testing.T) {
	svc := NewService(store.NewMemory())
	ctx := context.Background()

	ytWithDriveURL := validYouTubeForm()
	ytWithDriveURL.ResourceURL = "https://drive.google.com/file/d/1abc/view"

	driveWithYTURL := validDriveForm()
	driveWithYTURL.ResourceURL = "https://www.youtube.com/watch?v=oBt53YbR9Kk"

	for _, f := range []Form{ytWithDriveURL, driveWithYTURL} {
		_, err := svc.Submit(ctx, "u1", "Asha", f)
		verr, ok := forms.AsValidation(err)
		require.True(t, ok)
		require.Contains(t, verr.Fields, "resourceUrl")
		require.Equal(t, "does not match the selected resource type", verr.Fields["resourceUrl"])
	}

	feed, err := svc.Feed(ctx)
	require.NoError(t, err)
	require.Empty(t, feed)
}

func TestSubmit_FieldValidation(t *testing.T) {
	svc := NewService(store.NewMemory())
	ctx := context.Background()

	cases := []struct {
		name   string
		mutate func(*Form)
		field  string
	}{
		{"short topic", func(f *Form) { f.Topic = "ab" }, "topic"},
		{"unknown subject", func(f *Form) { f.Subject = "Astrology" }, "subject"},
		{"missing url", func(f *Form) { f.ResourceURL = "" }, "resourceUrl"},
		{"not a url", func(f *Form) { f.ResourceURL = "not a url" }, "resourceUrl"},
		{"unknown type", func(f *Form) { f.ResourceType = "vimeo" }, "resourceType"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := validYouTubeForm()
			tc.mutate(&f)
			_, err := svc.Submit(ctx, "u1", "Asha", f)
			verr, ok := forms.AsValidation(err)
			require.True(t, ok)
			require.Contains(t, verr.Fields, tc.field)
		})
	}
}

func TestFeed_NewestFirst(t *testing.T) {
	svc := NewService(store.NewMemory())
	ctx := context.Background()

	first, err := svc.Submit(ctx, "u1", "Asha", validYouTubeForm())
	require.NoError(t, err)
	time.Sleep(2 * time.Millisecond)
	second, err := svc.Submit(ctx, "u2", "Ravi", validDriveForm())
	require.NoError(t, err)

	feed, err := svc.Feed(ctx)
	require.NoError(t, err)
	require.Len(t, feed, 2)
	require.Equal(t, second, feed[0].ID)
	require.Equal(t, first, feed[1].ID)
	require.Equal(t, TypeDrive, feed[0].ResourceType)
}
