package openai

import (
	"fmt"
	"strings"
	"testing"

	"pgregory.net/rapid"

	"github.com/everstacklabs/taskrelay/internal/task"
)

func TestPropertyNonUploadableTypesAreSkipped(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		top := rapid.SampledFrom([]string{"text", "application", "font", "model", "multipart", ""}).Draw(t, "top")
		sub := rapid.StringMatching(`[a-z0-9.+-]{0,12}`).Draw(t, "sub")
		mt := top + "/" + sub
		if top == "" {
			mt = sub
		}
		if strings.EqualFold(mt, "application/pdf") {
			t.Skip("pdf is uploadable")
		}
		if shouldUpload(task.Attachment{Alias: "a", File: task.File{MediaType: mt}}) {
			t.Fatalf("media type %q should not be uploaded", mt)
		}
	})
}

func TestPropertyUploadableTypes(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		top := rapid.SampledFrom([]string{"image", "audio", "video", "IMAGE", "Video"}).Draw(t, "top")
		sub := rapid.StringMatching(`[a-z0-9.+-]{1,12}`).Draw(t, "sub")
		if !shouldUpload(task.Attachment{Alias: "a", File: task.File{MediaType: top + "/" + sub}}) {
			t.Fatalf("media type %s/%s should be uploaded", top, sub)
		}
	})
}

func TestPropertyImageSize(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		size := task.ImageSize{
			Width:  rapid.SampledFrom([]int{0, 256, 512, 640, 1024, 1792, 2048}).Draw(t, "w"),
			Height: rapid.SampledFrom([]int{0, 256, 512, 480, 1024, 1792, 2048}).Draw(t, "h"),
		}
		label := fmt.Sprintf("%dx%d", size.Width, size.Height)

		tag, err := imageSize(size)
		if _, known := imageSizes[size]; known {
			if err != nil || tag != label {
				t.Fatalf("imageSize(%s) = %q, %v", label, tag, err)
			}
			return
		}
		if err == nil || !strings.Contains(err.Error(), "`"+label+"`") {
			t.Fatalf("imageSize(%s) error = %v", label, err)
		}
	})
}

func TestPropertyRolesPreservedInOrder(t *testing.T) {
	p := New()
	roles := []task.Role{task.RoleSystem, task.RoleUser, task.RoleModel, ""}
	chatRoles := map[task.Role]string{task.RoleSystem: "system", task.RoleUser: "user", task.RoleModel: "assistant", "": "user"}

	rapid.Check(t, func(t *rapid.T) {
		picked := rapid.SliceOfN(rapid.SampledFrom(roles), 1, 12).Draw(t, "roles")
		tk := &task.Task{Kind: task.KindMessageGeneration}
		for i, r := range picked {
			tk.Messages = append(tk.Messages, task.Message{Role: r, Parts: []task.Part{task.Text(fmt.Sprint(i))}})
		}
		m := p.Model("gpt-5")

		chat := m.chatRequest(tk)
		rich := m.responsesRequest(tk, nil)
		if len(chat.Messages) != len(picked) || len(rich.Input) != len(picked) {
			t.Fatalf("got %d chat and %d rich messages for %d roles", len(chat.Messages), len(rich.Input), len(picked))
		}
		for i, r := range picked {
			if chat.Messages[i].Role != chatRoles[r] {
				t.Fatalf("chat message %d role %q, want %q", i, chat.Messages[i].Role, chatRoles[r])
			}
			if rich.Input[i].Role != chatRoles[r] {
				t.Fatalf("rich message %d role %q, want %q", i, rich.Input[i].Role, chatRoles[r])
			}
		}
	})
}

func TestPropertySpliceTargetsLastUserMessage(t *testing.T) {
	p := New()
	rapid.Check(t, func(t *rapid.T) {
		picked := rapid.SliceOfN(rapid.SampledFrom([]task.Role{task.RoleSystem, task.RoleUser, task.RoleModel}), 1, 8).Draw(t, "roles")
		n := rapid.IntRange(1, 3).Draw(t, "uploads")

		tk := &task.Task{Kind: task.KindMessageGeneration}
		lastUser := -1
		for i, r := range picked {
			tk.Messages = append(tk.Messages, task.Message{Role: r, Parts: []task.Part{task.Text("x")}})
			if r == task.RoleUser {
				lastUser = i
			}
		}
		var uploaded []uploadedAttachment
		for i := 0; i < n; i++ {
			uploaded = append(uploaded, uploadedAttachment{alias: fmt.Sprint(i), fileID: "f", mediaType: "application/pdf"})
		}

		req := p.Model("gpt-5").responsesRequest(tk, uploaded)
		if lastUser < 0 {
			if len(req.Input) != len(picked)+1 || len(req.Input[len(picked)].Content) != 2*n {
				t.Fatalf("expected a trailing user message with %d blocks", 2*n)
			}
			return
		}
		if len(req.Input) != len(picked) {
			t.Fatalf("splice added a message")
		}
		for i, msg := range req.Input {
			want := 1
			if i == lastUser {
				want += 2 * n
			}
			if len(msg.Content) != want {
				t.Fatalf("message %d has %d blocks, want %d", i, len(msg.Content), want)
			}
		}
	})
}
