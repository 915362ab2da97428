package db

import (
	"context"
	"database/sql"
	"errors"
	"testing"
)

func clearChannels(t *testing.T, database *sql.DB) {
	t.Helper()
	for _, stmt := range []string{
		`DELETE FROM channel_accounts`,
		`DELETE FROM channel_mods`,
		`DELETE FROM notable_players`,
		`DELETE FROM channels`,
	} {
		if _, err := database.Exec(stmt); err != nil {
			t.Fatalf("cleanup: %v", err)
		}
	}
}

func TestJoinPartChannel(t *testing.T) {
	database := setupDB(t)
	clearChannels(t, database)
	store := NewStore(database)
	ctx := context.Background()

	if err := store.JoinChannel(ctx, 101, "streamerone"); err != nil {
		t.Fatalf("join: %v", err)
	}
	if err := store.JoinChannel(ctx, 102, "streamertwo"); err != nil {
		t.Fatalf("join: %v", err)
	}

	names, err := store.ListChannelNames(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(names) != 2 {
		t.Fatalf("names = %v", names)
	}

	if err := store.PartChannel(ctx, 102); err != nil {
		t.Fatalf("part: %v", err)
	}
	names, err = store.ListChannelNames(ctx)
	if err != nil {
		t.Fatalf("list after part: %v", err)
	}
	if len(names) != 1 || names[0] != "streamerone" {
		t.Errorf("names after part = %v", names)
	}

	// Parting keeps the row and its settings.
	ch, err := store.GetChannel(ctx, 102)
	if err != nil {
		t.Fatalf("get parted channel: %v", err)
	}
	if ch.Name != "" {
		t.Errorf("parted channel name = %q, want empty", ch.Name)
	}

	if _, err := store.GetChannel(ctx, 555); !errors.Is(err, ErrChannelNotFound) {
		t.Errorf("err = %v, want ErrChannelNotFound", err)
	}
}

func TestTrackedAccounts(t *testing.T) {
	database := setupDB(t)
	clearChannels(t, database)
	store := NewStore(database)
	ctx := context.Background()

	if err := store.AddAccount(ctx, 101, 86745912); err != nil {
		t.Fatalf("add: %v", err)
	}
	if err := store.AddAccount(ctx, 101, 12345); err != nil {
		t.Fatalf("add: %v", err)
	}
	// Idempotent.
	if err := store.AddAccount(ctx, 101, 12345); err != nil {
		t.Fatalf("re-add: %v", err)
	}
	// Same account on another channel counts once globally.
	if err := store.AddAccount(ctx, 102, 12345); err != nil {
		t.Fatalf("add other channel: %v", err)
	}

	accounts, err := store.TrackedAccounts(ctx, 101)
	if err != nil {
		t.Fatalf("tracked: %v", err)
	}
	if len(accounts) != 2 || accounts[0] != 12345 || accounts[1] != 86745912 {
		t.Errorf("accounts = %v", accounts)
	}

	all, err := store.AllTrackedAccounts(ctx)
	if err != nil {
		t.Fatalf("all tracked: %v", err)
	}
	if len(all) != 2 {
		t.Errorf("all accounts = %v", all)
	}

	if err := store.RemoveAccount(ctx, 101, 12345); err != nil {
		t.Fatalf("remove: %v", err)
	}
	accounts, err = store.TrackedAccounts(ctx, 101)
	if err != nil {
		t.Fatalf("tracked after remove: %v", err)
	}
	if len(accounts) != 1 || accounts[0] != 86745912 {
		t.Errorf("accounts after remove = %v", accounts)
	}
}

func TestMods(t *testing.T) {
	database := setupDB(t)
	clearChannels(t, database)
	store := NewStore(database)
	ctx := context.Background()

	if ok, err := store.IsMod(ctx, 101, 7); err != nil || ok {
		t.Fatalf("IsMod before add = (%v, %v)", ok, err)
	}
	if err := store.AddMod(ctx, 101, 7); err != nil {
		t.Fatalf("add mod: %v", err)
	}
	if ok, err := store.IsMod(ctx, 101, 7); err != nil || !ok {
		t.Fatalf("IsMod after add = (%v, %v)", ok, err)
	}
	if err := store.RemoveMod(ctx, 101, 7); err != nil {
		t.Fatalf("remove mod: %v", err)
	}
	if ok, _ := store.IsMod(ctx, 101, 7); ok {
		t.Error("user still mod after remove")
	}

	if ok, err := store.IsGlobalMod(ctx, 7); err != nil || ok {
		t.Fatalf("IsGlobalMod = (%v, %v), want false", ok, err)
	}
	if _, err := database.Exec(`UPDATE channels SET global_mod=TRUE WHERE id=101`); err != nil {
		t.Fatalf("grant global mod: %v", err)
	}
	if ok, err := store.IsGlobalMod(ctx, 101); err != nil || !ok {
		t.Fatalf("IsGlobalMod = (%v, %v), want true", ok, err)
	}
}

func TestChannelFlags(t *testing.T) {
	database := setupDB(t)
	clearChannels(t, database)
	store := NewStore(database)
	ctx := context.Background()

	if err := store.SetChannelFlag(ctx, 101, "show_self", true); err != nil {
		t.Fatalf("set flag: %v", err)
	}
	if err := store.SetChannelFlag(ctx, 101, "emotes", true); err != nil {
		t.Fatalf("set flag: %v", err)
	}
	if err := store.SetDelaySeconds(ctx, 101, 120); err != nil {
		t.Fatalf("set delay: %v", err)
	}

	ch, err := store.GetChannel(ctx, 101)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if !ch.ShowSelf || !ch.Emotes || ch.DelayEnabled {
		t.Errorf("flags = %+v", ch)
	}
	if ch.DelaySeconds != 120 {
		t.Errorf("delay = %d", ch.DelaySeconds)
	}

	if err := store.SetChannelFlag(ctx, 101, "name", true); err == nil {
		t.Error("arbitrary column accepted as flag")
	}
}

func TestNotablePlayers(t *testing.T) {
	database := setupDB(t)
	clearChannels(t, database)
	store := NewStore(database)
	ctx := context.Background()

	np := NotablePlayer{AccountID: 86745912, ChannelID: 101, Name: "Arteezy", LastChangedBy: 7}
	if err := store.UpsertNotablePlayer(ctx, np); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	var (
		name    string
		enabled bool
	)
	row := database.QueryRow(`SELECT name, enabled FROM notable_players WHERE account_id=$1 AND channel_id=$2`,
		np.AccountID, np.ChannelID)
	if err := row.Scan(&name, &enabled); err != nil {
		t.Fatalf("scan: %v", err)
	}
	if name != "Arteezy" || !enabled {
		t.Errorf("row = (%q, %v)", name, enabled)
	}

	// Rename through the same upsert.
	np.Name = "rtz"
	if err := store.UpsertNotablePlayer(ctx, np); err != nil {
		t.Fatalf("rename: %v", err)
	}

	if err := store.DisableNotablePlayer(ctx, np.AccountID, np.ChannelID, 8); err != nil {
		t.Fatalf("disable: %v", err)
	}
	row = database.QueryRow(`SELECT name, enabled FROM notable_players WHERE account_id=$1 AND channel_id=$2`,
		np.AccountID, np.ChannelID)
	if err := row.Scan(&name, &enabled); err != nil {
		t.Fatalf("scan after disable: %v", err)
	}
	if name != "rtz" || enabled {
		t.Errorf("row after disable = (%q, %v)", name, enabled)
	}
}
