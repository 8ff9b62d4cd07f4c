// Command shimkit extracts AppCompatCache (shim cache) entries from SYSTEM
// hives, raw value dumps, or the live registry.
package main

func main() {
	execute()
}
