package b

import "os"

func main() {
	os.Exit(1)
}

// Main is exported so that main above is not reported as unused.
func Main() {
	main()
}
