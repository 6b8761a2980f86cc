package db

import (
	"testing"

	"github.com/kvistad/renderloop/internal/config"
	"github.com/kvistad/renderloop/internal/models"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func TestDSN(t *testing.T) {
	tests := []struct {
		name string
		cfg  config.DBConfig
		want string
	}{
		{
			name: "default local",
			cfg:  config.DBConfig{Host: "127.0.0.1", Port: 3306, User: "root", Database: "renderloop_alice"},
			want: "root@tcp(127.0.0.1:3306)/renderloop_alice?parseTime=true&charset=utf8mb4",
		},
		{
			name: "with password",
			cfg:  config.DBConfig{Host: "10.0.0.5", Port: 3307, User: "rl", Password: "secret", Database: "renderloop_bob"},
			want: "rl:secret@tcp(10.0.0.5:3307)/renderloop_bob?parseTime=true&charset=utf8mb4",
		},
		{
			name: "admin without database",
			cfg:  config.DBConfig{Host: "db.vpc.internal", Port: 3306, User: "root"},
			want: "root@tcp(db.vpc.internal:3306)/?parseTime=true&charset=utf8mb4",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := DSN(tt.cfg)
			if got != tt.want {
				t.Errorf("DSN() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestAllModels_Count(t *testing.T) {
	if got := len(AllModels()); got != 6 {
		t.Errorf("len(AllModels()) = %d, want 6", got)
	}
}

func TestAutoMigrate_InMemory(t *testing.T) {
	gdb, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := AutoMigrate(gdb); err != nil {
		t.Fatalf("AutoMigrate: %v", err)
	}

	// Every model table should accept a row round-trip.
	p := models.Pipeline{ID: "pl-00001", Name: "Test Apartment"}
	if err := gdb.Create(&p).Error; err != nil {
		t.Fatalf("create pipeline: %v", err)
	}
	var back models.Pipeline
	if err := gdb.First(&back, "id = ?", "pl-00001").Error; err != nil {
		t.Fatalf("read pipeline back: %v", err)
	}
	if back.Status != "draft" {
		t.Errorf("default Status = %q, want draft", back.Status)
	}
	if back.CurrentStage != "renders" {
		t.Errorf("default CurrentStage = %q, want renders", back.CurrentStage)
	}
}
