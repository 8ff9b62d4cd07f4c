package hivegen

import "fmt"

// ControlSet describes one ControlSet00N to place in a SYSTEM hive.
type ControlSet struct {
	ID    int
	Cache []byte // AppCompatCache value; nil leaves the key out
	// Legacy stores the value under AppCompatibility instead of
	// AppCompatCache, as Windows XP does.
	Legacy bool
}

// System builds a SYSTEM hive tree with the given control sets, Select\Current
// pointing at current, and PROCESSOR_ARCHITECTURE set to arch ("x86",
// "AMD64") in every set.
func System(current int, arch string, sets ...ControlSet) *Key {
	root := &Key{Name: "ROOT"}
	root.Path("Select").
		Set("Current", RegDWORD, DWORD(uint32(current))).
		Set("Default", RegDWORD, DWORD(uint32(current))).
		Set("LastKnownGood", RegDWORD, DWORD(uint32(current)))
	root.Path("Setup").Set("SystemSetupInProgress", RegDWORD, DWORD(0))
	for _, cs := range sets {
		base := root.Path(fmt.Sprintf(`ControlSet%03d\Control\Session Manager`, cs.ID))
		base.Path("Environment").
			Set("PROCESSOR_ARCHITECTURE", RegSZ, String(arch)).
			Set("NUMBER_OF_PROCESSORS", RegSZ, String("4"))
		if cs.Cache == nil {
			continue
		}
		sub := "AppCompatCache"
		if cs.Legacy {
			sub = "AppCompatibility"
		}
		base.Path(sub).Set("AppCompatCache", RegBinary, cs.Cache)
	}
	return root
}
