package userdata

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
)

// BotsDirName is the project directory holding one subdirectory per bot.
const BotsDirName = "bots"

// Bot is a bot directory below <project>/bots that carries a user_data tree.
type Bot struct {
	Name string
	Dir  string
}

// UserData returns the Layout of the bot's user_data directory.
func (b Bot) UserData() Layout {
	return NewLayout(filepath.Join(b.Dir, "user_data"))
}

// ComposeFile returns the bot's docker-compose.yml path.
func (b Bot) ComposeFile() string {
	return filepath.Join(b.Dir, "docker-compose.yml")
}

// FindBots lists the bots under <project>/bots in name order. Directories
// without a user_data subdirectory are ignored.
func FindBots(project string) ([]Bot, error) {
	dir := filepath.Join(project, BotsDirName)
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("no %q folder found at %s", BotsDirName, dir)
		}
		return nil, err
	}

	var bots []Bot
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		botDir := filepath.Join(dir, e.Name())
		if info, err := os.Stat(filepath.Join(botDir, "user_data")); err != nil || !info.IsDir() {
			continue
		}
		bots = append(bots, Bot{Name: e.Name(), Dir: botDir})
	}
	sort.Slice(bots, func(i, j int) bool { return bots[i].Name < bots[j].Name })
	return bots, nil
}
