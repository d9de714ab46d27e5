// ABOUTME: Closed list of destructive command fragments shared by the exec tools.

package tools

import "strings"

var destructivePatterns = []string{
	"rm -rf /",
	"rm -rf /*",
	"rm -fr /",
	":(){ :|:& };:",
	":(){:|:&};:",
	"mkfs",
	"dd if=/dev/zero of=/dev/",
	"dd of=/dev/",
	"> /dev/sda",
	"shutdown",
	"reboot",
	"halt -f",
	"chmod -r 777 /",
	"chown -r",
	`subprocess.call("rm`,
	"subprocess.call('rm",
	`os.system("rm -rf`,
	"os.system('rm -rf",
	"shutil.rmtree('/'",
	`shutil.rmtree("/"`,
}

// checkDestructive returns the matched fragment when the payload contains a
// blocked pattern, matched case-insensitively.
func checkDestructive(payload string) (string, bool) {
	lower := strings.ToLower(payload)
	for _, p := range destructivePatterns {
		if strings.Contains(lower, strings.ToLower(p)) {
			return p, true
		}
	}
	return "", false
}
