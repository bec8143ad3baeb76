package daemon

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"
)

const unitName = "xystage.service"

var (
	unitPath = "/etc/systemd/system/" + unitName

	// systemctl runs systemctl with args. Replaced in tests.
	systemctl = func(args ...string) error {
		out, err := exec.Command("systemctl", args...).CombinedOutput()
		if err != nil {
			return fmt.Errorf("systemctl %s: %w: %s", strings.Join(args, " "), err, strings.TrimSpace(string(out)))
		}
		return nil
	}
)

const unitTemplate = `[Unit]
Description=xystage stepper stage daemon
After=network.target

[Service]
Type=simple
ExecStart=@EXEC@ daemon @ARGS@
Restart=on-failure
RestartSec=5

[Install]
WantedBy=multi-user.target
`

// Unit renders the systemd unit running exePath with daemonArgs.
func Unit(exePath string, daemonArgs []string) string {
	s := strings.ReplaceAll(unitTemplate, "@EXEC@", exePath)
	return strings.ReplaceAll(s, " @ARGS@", argsSuffix(daemonArgs))
}

func argsSuffix(args []string) string {
	if len(args) == 0 {
		return ""
	}
	return " " + strings.Join(args, " ")
}

// Install writes the systemd unit for the current executable, then enables
// and starts it.
func Install(daemonArgs []string) error {
	exePath, err := os.Executable()
	if err != nil {
		return fmt.Errorf("failed to get the path to the current executable: %w", err)
	}
	exePath, err = filepath.Abs(exePath)
	if err != nil {
		return fmt.Errorf("failed to get the absolute path to the current executable: %w", err)
	}

	logrus.Infof("current executable path: %s", exePath)

	if err := os.MkdirAll(filepath.Dir(unitPath), 0755); err != nil {
		return fmt.Errorf("failed to create %s: %w", filepath.Dir(unitPath), err)
	}

	if _, err := os.Stat(unitPath); err == nil {
		logrus.Warnf("%s already exists, overwriting", unitPath)
	}

	logrus.Infof("writing systemd unit to %s", unitPath)
	if err := os.WriteFile(unitPath, []byte(Unit(exePath, daemonArgs)), 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", unitPath, err)
	}

	logrus.Info("starting xystage")
	if err := systemctl("daemon-reload"); err != nil {
		return err
	}
	return systemctl("enable", "--now", unitName)
}
