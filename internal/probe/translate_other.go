//go:build !darwin

package probe

func underTranslation() bool {
	return false
}
