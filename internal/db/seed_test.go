package db

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/diewo77/go-partners/internal/config"
	"github.com/diewo77/go-partners/internal/models"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func openMemory(t *testing.T) *gorm.DB {
	t.Helper()
	d, err := gorm.Open(sqlite.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())), &gorm.Config{})
	if err != nil {
		t.Fatal(err)
	}
	if err := Migrate(d, config.DatabaseConfig{Driver: "sqlite"}, false); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return d
}

func TestSeedAdminIdempotent(t *testing.T) {
	d := openMemory(t)
	for i := 0; i < 2; i++ {
		if err := SeedAdmin(d, "Admin@Example.com", "s3cret"); err != nil {
			t.Fatalf("seed admin: %v", err)
		}
	}
	var admins []models.AdminUser
	d.Find(&admins)
	if len(admins) != 1 {
		t.Fatalf("expected 1 admin got %d", len(admins))
	}
	if admins[0].Email != "admin@example.com" {
		t.Fatalf("expected normalized email got %s", admins[0].Email)
	}
	if bcrypt.CompareHashAndPassword([]byte(admins[0].Password), []byte("s3cret")) != nil {
		t.Fatal("stored password is not a bcrypt hash of the input")
	}
}

func TestSeedAdminSkipsWithoutPassword(t *testing.T) {
	d := openMemory(t)
	if err := SeedAdmin(d, "admin@example.com", ""); err != nil {
		t.Fatal(err)
	}
	var n int64
	d.Model(&models.AdminUser{}).Count(&n)
	if n != 0 {
		t.Fatalf("expected no admin got %d", n)
	}
}

func TestSeedDemoIdempotent(t *testing.T) {
	d := openMemory(t)
	now := time.Date(2025, time.June, 10, 0, 0, 0, 0, time.UTC)
	if err := SeedDemo(d, now); err != nil {
		t.Fatalf("seed: %v", err)
	}
	if err := SeedDemo(d, now); err != nil {
		t.Fatalf("reseed: %v", err)
	}
	var partners, clients, services, items int64
	d.Model(&models.Partner{}).Count(&partners)
	d.Model(&models.Client{}).Count(&clients)
	d.Model(&models.Service{}).Count(&services)
	d.Model(&models.ProposalItem{}).Count(&items)
	if partners != 1 || clients != 2 || services != 4 || items != 2 {
		t.Fatalf("unexpected counts partners=%d clients=%d services=%d items=%d", partners, clients, services, items)
	}
}

func TestMaskDSN(t *testing.T) {
	cases := map[string]string{
		"host=db user=u password=hunter2 dbname=n": "host=db user=u password=*** dbname=n",
		"postgres://u:hunter2@db:5432/n":           "postgres://u:***@db:5432/n",
		"partners.db":                              "partners.db",
	}
	for in, want := range cases {
		if got := MaskDSN(in); got != want {
			t.Errorf("MaskDSN(%q) = %q want %q", in, got, want)
		}
		if strings.Contains(MaskDSN(in), "hunter2") {
			t.Errorf("password leaked for %q", in)
		}
	}
}
