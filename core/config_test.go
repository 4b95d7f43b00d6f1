package core

import "testing"

func TestConfig_Validate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			Env:      "DEV",
			Debug:    true,
			Database: DatabaseConfig{Engine: "sqlite"},
			Ledger:   LedgerConfig{PassingGrade: 6},
		}
	}

	tests := []struct {
		name    string
		edit    func(*Config)
		wantErr bool
	}{
		{name: "valid", edit: func(*Config) {}},
		{name: "postgres", edit: func(c *Config) { c.Database.Engine = "postgres" }},
		{name: "unknown engine", edit: func(c *Config) { c.Database.Engine = "mysql" }, wantErr: true},
		{name: "negative passing grade", edit: func(c *Config) { c.Ledger.PassingGrade = -1 }, wantErr: true},
		{name: "passing grade above scale", edit: func(c *Config) { c.Ledger.PassingGrade = 10.5 }, wantErr: true},
		{name: "debug in production", edit: func(c *Config) { c.Env = "PROD" }, wantErr: true},
		{
			name:    "production without rollbar",
			edit:    func(c *Config) { c.Env, c.Debug, c.SendgridApiKey = "PROD", false, "sg" },
			wantErr: true,
		},
		{
			name: "production",
			edit: func(c *Config) { c.Env, c.Debug, c.SendgridApiKey, c.RollbarToken = "PROD", false, "sg", "rb" },
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			conf := valid()
			tt.edit(conf)
			if err := conf.Validate(); (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
