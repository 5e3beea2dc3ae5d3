package auth

import (
	"context"
	"errors"
	"testing"

	"github.com/iliyamo/parkall/internal/model"
	"github.com/iliyamo/parkall/internal/repository"
	"github.com/iliyamo/parkall/internal/utils"
)

func newService(store *repository.MemoryStore) *Service {
	return &Service{
		Identities: NewLocalProvider(store.Credentials(), 4),
		Profiles:   store.Users(),
		Secret:     "test-secret",
		TTLMin:     60,
	}
}

func TestRegisterAndLogin(t *testing.T) {
	ctx := context.Background()
	store := repository.NewMemoryStore()
	svc := newService(store)

	u, err := svc.Register(ctx, RegisterInput{Name: "Ana", Email: " Ana@Example.com ", Password: "hunter22"})
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if u.Email != "ana@example.com" || u.ExternalRef == "" || u.ID == "" {
		t.Fatalf("user = %+v", u)
	}

	sess, err := svc.Login(ctx, "ana@example.com", "hunter22")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	cl, err := utils.ParseAccessToken("test-secret", sess.Token)
	if err != nil {
		t.Fatalf("token rejected: %v", err)
	}
	if cl.UserID != u.ID || cl.Email != u.Email {
		t.Errorf("claims = %+v, want sub=%s", cl, u.ID)
	}

	me, err := svc.Me(ctx, cl.UserID)
	if err != nil || me.Name != "Ana" {
		t.Errorf("Me = %+v, %v", me, err)
	}
}

func TestRegister_Validation(t *testing.T) {
	svc := newService(repository.NewMemoryStore())
	tests := []struct {
		name string
		in   RegisterInput
	}{
		{"missing name", RegisterInput{Email: "a@b.co", Password: "secret1"}},
		{"bad email", RegisterInput{Name: "A", Email: "not-an-email", Password: "secret1"}},
		{"short password", RegisterInput{Name: "A", Email: "a@b.co", Password: "123"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Register(context.Background(), tt.in)
			if model.KindOf(err) != model.KindInvalidInput {
				t.Errorf("err = %v, want invalid input", err)
			}
		})
	}
}

func TestRegister_DuplicateEmail(t *testing.T) {
	ctx := context.Background()
	svc := newService(repository.NewMemoryStore())
	in := RegisterInput{Name: "Ana", Email: "ana@example.com", Password: "hunter22"}
	if _, err := svc.Register(ctx, in); err != nil {
		t.Fatal(err)
	}
	_, err := svc.Register(ctx, in)
	if model.KindOf(err) != model.KindInvalidInput {
		t.Fatalf("err = %v, want invalid input", err)
	}
}

type failingProfiles struct{ ProfileStore }

func (failingProfiles) Create(ctx context.Context, u *model.User) error {
	return errors.New("write timeout")
}

func TestRegister_ProfileFailureDeletesIdentity(t *testing.T) {
	ctx := context.Background()
	store := repository.NewMemoryStore()
	svc := newService(store)
	svc.Profiles = failingProfiles{store.Users()}

	_, err := svc.Register(ctx, RegisterInput{Name: "Ana", Email: "ana@example.com", Password: "hunter22"})
	if model.KindOf(err) != model.KindInternal {
		t.Fatalf("err = %v, want internal", err)
	}
	if _, err := store.Credentials().GetByEmail(ctx, "ana@example.com"); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("identity left behind: %v", err)
	}

	// the email can be registered again once the store recovers
	svc.Profiles = store.Users()
	if _, err := svc.Register(ctx, RegisterInput{Name: "Ana", Email: "ana@example.com", Password: "hunter22"}); err != nil {
		t.Fatalf("retry Register: %v", err)
	}
}

func TestLogin_Errors(t *testing.T) {
	ctx := context.Background()
	svc := newService(repository.NewMemoryStore())
	if _, err := svc.Register(ctx, RegisterInput{Name: "Ana", Email: "ana@example.com", Password: "hunter22"}); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name     string
		email    string
		password string
		want     model.Kind
	}{
		{"unknown email", "bob@example.com", "hunter22", model.KindNotFound},
		{"wrong password", "ana@example.com", "wrong-pass", model.KindInvalidInput},
		{"empty password", "ana@example.com", "", model.KindInvalidInput},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Login(ctx, tt.email, tt.password)
			if got := model.KindOf(err); err == nil || got != tt.want {
				t.Errorf("err = %v (kind %v), want %v", err, got, tt.want)
			}
		})
	}
}
