package bot

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/onnwee/dotascore/db"
)

// Offset between a 64-bit steam id and the 32-bit account id Dota uses.
const steamID64Offset = 76561197960265728

var loginRe = regexp.MustCompile(`^[a-zA-Z0-9]\w{0,24}$`)

// parseAccountID accepts either a 32-bit account id or a full 64-bit steam id.
func parseAccountID(s string) (int64, error) {
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil || v < 0 {
		return 0, fmt.Errorf("not an account id: %q", s)
	}
	if v >= steamID64Offset {
		v -= steamID64Offset
	}
	return v, nil
}

func formatChallengeTime(t time.Time) string {
	t = t.UTC()
	return fmt.Sprintf("%d/%d/%d %d:%02d:%02d",
		t.Year(), int(t.Month()), t.Day(), t.Hour(), t.Minute(), t.Second())
}

// moderation handles everything behind the command prefix except score. The
// caller must be the broadcaster, a bot mod of the channel, or a global mod;
// anyone else gets silence. Returned UserErrors go to chat verbatim.
func (b *Bot) moderation(ctx context.Context, cmd string, args []string, channel string, roomID, userID int64, username string) (string, error) {
	isBroadcaster := userID == roomID
	isGlobalMod, err := b.Store.IsGlobalMod(ctx, userID)
	if err != nil {
		return "", fmt.Errorf("check global mod: %w", err)
	}
	if !isBroadcaster && !isGlobalMod {
		isMod, err := b.Store.IsMod(ctx, roomID, userID)
		if err != nil {
			return "", fmt.Errorf("check mod: %w", err)
		}
		if !isMod {
			return "", nil
		}
	}

	switch cmd {
	case "id":
		return b.heroAccountID(ctx, roomID, args)
	case "listacc":
		accounts, err := b.Store.TrackedAccounts(ctx, roomID)
		if err != nil {
			return "", err
		}
		if len(accounts) == 0 {
			return "", &UserError{Message: "No accounts connected"}
		}
		parts := make([]string, len(accounts))
		for i, a := range accounts {
			parts[i] = strconv.FormatInt(a, 10)
		}
		return fmt.Sprintf("Accounts linked to %s: %s", channel, strings.Join(parts, ", ")), nil
	case "addacc":
		if len(args) != 1 {
			return "", userErrorf("Wrong syntax: %s addacc id", b.Prefix)
		}
		id, err := parseAccountID(args[0])
		if err != nil {
			return "", userErrorf("Wrong syntax: %s addacc id", b.Prefix)
		}
		if err := b.Store.AddAccount(ctx, roomID, id); err != nil {
			return "", userErrorf("Error adding %d to %s accounts", id, channel)
		}
		return fmt.Sprintf("%s succesfully added %d to %s accounts", username, id, channel), nil
	case "delacc":
		if len(args) != 1 {
			return "", userErrorf("Wrong syntax: %s delacc id", b.Prefix)
		}
		id, err := parseAccountID(args[0])
		if err != nil {
			return "", userErrorf("Wrong syntax: %s delacc id", b.Prefix)
		}
		if err := b.Store.RemoveAccount(ctx, roomID, id); err != nil {
			return "", userErrorf("Error removing %d from %s accounts", id, channel)
		}
		return fmt.Sprintf("%s succesfully removed %d from %s accounts", username, id, channel), nil
	case "addnp":
		if len(args) < 2 {
			return "", userErrorf("Wrong syntax: %s addnp id nickname", b.Prefix)
		}
		id, err := parseAccountID(args[0])
		if err != nil {
			return "", userErrorf("Wrong syntax: %s addnp id nickname", b.Prefix)
		}
		np := db.NotablePlayer{AccountID: id, ChannelID: roomID, Name: strings.Join(args[1:], " "), LastChangedBy: userID}
		if err := b.Store.UpsertNotablePlayer(ctx, np); err != nil {
			return "", userErrorf("Error adding %d to %s local notable players", id, channel)
		}
		return fmt.Sprintf("%s successfully added %d to %s local notable players", username, id, channel), nil
	case "delnp":
		if len(args) != 1 {
			return "", userErrorf("Wrong syntax: %s delnp id", b.Prefix)
		}
		id, err := parseAccountID(args[0])
		if err != nil {
			return "", userErrorf("Wrong syntax: %s delnp id", b.Prefix)
		}
		if err := b.Store.DisableNotablePlayer(ctx, id, roomID, userID); err != nil {
			return "", userErrorf("Error removing %d from %s local notable players", id, channel)
		}
		return fmt.Sprintf("%s successfully removed %d from %s local notable players", username, id, channel), nil
	case "addmod", "delmod":
		if !isBroadcaster && !isGlobalMod {
			return "", nil
		}
		return b.editMods(ctx, cmd, args, channel, roomID)
	case "hc":
		return b.heroChallenge(ctx, roomID, args)
	case "toggleself":
		return b.toggleFlag(ctx, roomID, "show_self", "Toggled showing streamer as a notable player %s")
	case "toggleemotes":
		return b.toggleFlag(ctx, roomID, "emotes", "Toggled showing emotes instead of hero names %s")
	case "delay":
		return b.delay(ctx, roomID, args)
	case "addglobalnp":
		if !isGlobalMod {
			return "", nil
		}
		if len(args) < 2 {
			return "", userErrorf("Wrong syntax: %s addglobalnp id nickname", b.Prefix)
		}
		id, err := parseAccountID(args[0])
		if err != nil {
			return "", userErrorf("Wrong syntax: %s addglobalnp id nickname", b.Prefix)
		}
		np := db.NotablePlayer{AccountID: id, ChannelID: 0, Name: strings.Join(args[1:], " "), LastChangedBy: userID}
		if err := b.Store.UpsertNotablePlayer(ctx, np); err != nil {
			return "", userErrorf("Error adding %d to global notable players", id)
		}
		return fmt.Sprintf("%s successfully added %d to global notable players", username, id), nil
	case "delglobalnp":
		if !isGlobalMod {
			return "", nil
		}
		if len(args) != 1 {
			return "", userErrorf("Wrong syntax: %s delglobalnp id", b.Prefix)
		}
		id, err := parseAccountID(args[0])
		if err != nil {
			return "", userErrorf("Wrong syntax: %s delglobalnp id", b.Prefix)
		}
		if err := b.Store.DisableNotablePlayer(ctx, id, 0, userID); err != nil {
			return "", userErrorf("Error removing %d from global notable players", id)
		}
		return fmt.Sprintf("%s successfully removed %d from global notable players", username, id), nil
	case "addemotes", "delemotes":
		if !isGlobalMod {
			return "", nil
		}
		return b.editEmotes(ctx, cmd, args)
	case "listemotes":
		if !isGlobalMod {
			return "", nil
		}
		return b.listEmotes(ctx)
	case "join", "part":
		if !isGlobalMod {
			return "", nil
		}
		return b.joinPart(ctx, cmd, args)
	default:
		return "", nil
	}
}

func (b *Bot) heroAccountID(ctx context.Context, roomID int64, args []string) (string, error) {
	if len(args) == 0 {
		return "", nil
	}
	heroName := strings.Join(args, " ")
	hero, err := b.Store.FindHeroByName(ctx, heroName)
	if errors.Is(err, db.ErrHeroNotFound) {
		return "", userErrorf("Hero %s doesn't exist", heroName)
	}
	if err != nil {
		return "", err
	}
	accounts, err := b.Store.TrackedAccounts(ctx, roomID)
	if err != nil {
		return "", err
	}
	players, err := b.Store.ActiveGamePlayers(ctx, accounts)
	if errors.Is(err, sql.ErrNoRows) {
		return "", &UserError{Message: "Game wasn't found"}
	}
	if err != nil {
		return "", err
	}
	for _, p := range players {
		if p.HeroID == hero.ID {
			return fmt.Sprintf("%s: %d", hero.Name, p.AccountID), nil
		}
	}
	return "", userErrorf("Hero %s isn't in the current game", hero.Name)
}

func (b *Bot) editMods(ctx context.Context, cmd string, args []string, channel string, roomID int64) (string, error) {
	if len(args) == 0 {
		return "", nil
	}
	login := strings.TrimPrefix(args[0], "@")
	modList := strings.TrimPrefix(b.Prefix, "!") + " mods"
	if !loginRe.MatchString(login) {
		return "", fmt.Errorf("not a valid twitch username: %q", login)
	}
	user, err := b.Helix.GetUserByLogin(ctx, login)
	if err != nil {
		if cmd == "addmod" {
			return "", fmt.Errorf("adding %s to %s %s: %w", login, channel, modList, err)
		}
		return "", fmt.Errorf("removing %s from %s %s: %w", login, channel, modList, err)
	}
	if cmd == "addmod" {
		if err := b.Store.AddMod(ctx, roomID, user.ID); err != nil {
			return "", err
		}
		return fmt.Sprintf("Successfully added %s to %s %s", login, channel, modList), nil
	}
	if err := b.Store.RemoveMod(ctx, roomID, user.ID); err != nil {
		return "", err
	}
	return fmt.Sprintf("Successfully removed %s from %s %s", login, channel, modList), nil
}

func (b *Bot) findHero(ctx context.Context, name string) (db.Hero, error) {
	hero, err := b.Store.FindHeroByName(ctx, name)
	if errors.Is(err, db.ErrHeroNotFound) {
		return db.Hero{}, userErrorf("Hero %s doesn't exist", name)
	}
	return hero, err
}

func (b *Bot) heroChallenge(ctx context.Context, roomID int64, args []string) (string, error) {
	if len(args) == 0 {
		return "", nil
	}
	switch args[0] {
	case "addhero":
		hero, err := b.findHero(ctx, strings.Join(args[1:], " "))
		if err != nil {
			return "", err
		}
		start := time.Now().UTC()
		added, err := b.Store.AddHeroChallenge(ctx, roomID, hero.ID, start)
		if err != nil {
			return "", err
		}
		if !added {
			return fmt.Sprintf("Hero %s already exists. In order to change starting time, use %s hc settime ", hero.Name, b.Prefix), nil
		}
		return fmt.Sprintf("Added %s to hero challenge list and start time to %s", hero.Name, formatChallengeTime(start)), nil
	case "delhero":
		hero, err := b.findHero(ctx, strings.Join(args[1:], " "))
		if err != nil {
			return "", err
		}
		if err := b.Store.RemoveHeroChallenge(ctx, roomID, hero.ID); err != nil {
			return "", err
		}
		return fmt.Sprintf("Removed %s from hero challenge list", hero.Name), nil
	case "settime":
		if len(args) < 2 {
			return fmt.Sprintf("Wrong syntax: %s hc settime hero name | time", b.Prefix), nil
		}
		parts := strings.SplitN(strings.Join(args[1:], " "), "|", 2)
		hero, err := b.findHero(ctx, strings.TrimSpace(parts[0]))
		if err != nil {
			return "", err
		}
		start := time.Now().UTC()
		if len(parts) > 1 {
			if parsed, ok := parseChallengeTime(strings.TrimSpace(parts[1])); ok {
				start = parsed
			}
		}
		if err := b.Store.SetHeroChallengeTime(ctx, roomID, hero.ID, start); err != nil {
			return "", err
		}
		return fmt.Sprintf("Updated %s start time to %s", hero.Name, formatChallengeTime(start)), nil
	case "list":
		challenges, names, err := b.Store.ListHeroChallenges(ctx, roomID)
		if err != nil {
			return "", err
		}
		if len(challenges) == 0 {
			return "", &UserError{Message: "Hero challenge empty"}
		}
		parts := make([]string, len(challenges))
		for i, hc := range challenges {
			parts[i] = fmt.Sprintf("%s since %s", names[hc.HeroID], formatChallengeTime(hc.StartedAt))
		}
		return strings.Join(parts, ", "), nil
	}
	return "", nil
}

func parseChallengeTime(s string) (time.Time, bool) {
	for _, layout := range []string{"2006/1/2 15:04:05", "2006-01-02 15:04:05", time.RFC3339} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}

func (b *Bot) toggleFlag(ctx context.Context, roomID int64, flag, format string) (string, error) {
	ch, err := b.Store.GetChannel(ctx, roomID)
	if err != nil && !errors.Is(err, db.ErrChannelNotFound) {
		return "", err
	}
	cur := false
	switch flag {
	case "show_self":
		cur = ch.ShowSelf
	case "emotes":
		cur = ch.Emotes
	}
	if err := b.Store.SetChannelFlag(ctx, roomID, flag, !cur); err != nil {
		return "", err
	}
	state := "on"
	if cur {
		state = "off"
	}
	return fmt.Sprintf(format, state), nil
}

func (b *Bot) delay(ctx context.Context, roomID int64, args []string) (string, error) {
	ch, err := b.Store.GetChannel(ctx, roomID)
	if err != nil && !errors.Is(err, db.ErrChannelNotFound) {
		return "", err
	}
	if len(args) == 0 {
		if ch.DelayEnabled {
			return fmt.Sprintf("Showing games in %d seconds delay", ch.DelaySeconds), nil
		}
		return "Showing games live", nil
	}
	switch args[0] {
	case "on":
		if err := b.Store.SetChannelFlag(ctx, roomID, "delay_enabled", true); err != nil {
			return "", err
		}
		return "Turned delay on", nil
	case "off":
		if err := b.Store.SetChannelFlag(ctx, roomID, "delay_enabled", false); err != nil {
			return "", err
		}
		return "Turned delay off", nil
	case "set":
		if len(args) != 2 {
			return "", nil
		}
		n, err := strconv.Atoi(args[1])
		if err != nil || n <= 0 || n > 600 || n%30 != 0 {
			return "", nil
		}
		if err := b.Store.SetDelaySeconds(ctx, roomID, n); err != nil {
			return "", err
		}
		return fmt.Sprintf("Set delay to %d", n), nil
	}
	return "", nil
}

func (b *Bot) editEmotes(ctx context.Context, cmd string, args []string) (string, error) {
	if len(args) == 0 {
		return "", nil
	}
	parts := strings.Split(strings.Join(args, " "), ",")
	if len(parts) != 2 {
		return "", userErrorf("Wrong syntax: %s emotes, hero", b.Prefix+" "+cmd)
	}
	emotes := strings.TrimSpace(parts[0])
	hero, err := b.findHero(ctx, strings.TrimSpace(parts[1]))
	if err != nil {
		return "", err
	}
	if cmd == "addemotes" {
		if err := b.Store.AddHeroEmotes(ctx, hero.ID, emotes); err != nil {
			return "", err
		}
		return fmt.Sprintf("Emotes %s added as custom emote for hero %s", emotes, hero.Name), nil
	}
	if err := b.Store.RemoveHeroEmotes(ctx, hero.ID, emotes); err != nil {
		return "", err
	}
	return fmt.Sprintf("Emotes %s deleted as custom emote for hero %s", emotes, hero.Name), nil
}

func (b *Bot) listEmotes(ctx context.Context) (string, error) {
	byHero, err := b.Store.ListHeroEmotes(ctx)
	if err != nil {
		return "", err
	}
	names := make([]string, 0, len(byHero))
	for name := range byHero {
		names = append(names, name)
	}
	sort.Strings(names)
	parts := make([]string, len(names))
	for i, name := range names {
		parts[i] = fmt.Sprintf("%s: %s", name, strings.Join(byHero[name], ", "))
	}
	return strings.Join(parts, ", "), nil
}

func (b *Bot) joinPart(ctx context.Context, cmd string, args []string) (string, error) {
	if len(args) == 0 || !loginRe.MatchString(args[0]) {
		return "", nil
	}
	login := strings.ToLower(args[0])
	user, err := b.Helix.GetUserByLogin(ctx, login)
	if err != nil {
		return "", err
	}
	if cmd == "join" {
		if err := b.Store.JoinChannel(ctx, user.ID, login); err != nil {
			return "", err
		}
		b.Client.Join(login)
		return fmt.Sprintf("Joining %s", login), nil
	}
	if err := b.Store.PartChannel(ctx, user.ID); err != nil {
		return "", err
	}
	b.Client.Depart(login)
	return fmt.Sprintf("Leaving %s", login), nil
}
