package daemon

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
)

// Uninstall stops and disables the unit and removes it. A missing unit is
// not an error.
func Uninstall() error {
	if _, err := os.Stat(unitPath); err != nil {
		if os.IsNotExist(err) {
			logrus.Infof("%s does not exist, nothing to uninstall", unitPath)
			return nil
		}
		return fmt.Errorf("failed to stat %s: %w", unitPath, err)
	}

	logrus.Info("stopping xystage")
	if err := systemctl("disable", "--now", unitName); err != nil {
		return fmt.Errorf("%w. Are you root?", err)
	}

	logrus.Info("removing systemd unit")
	if err := os.Remove(unitPath); err != nil {
		return fmt.Errorf("failed to remove %s: %w. Are you root?", unitPath, err)
	}
	return systemctl("daemon-reload")
}
