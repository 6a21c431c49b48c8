package pkgmanager

import "ace/errs"

// Static is an in-memory PackageManager keyed by package name, used by the
// CLI where there is no real device package manager to query. The CLI
// builds it empty; its "simulate" command passes the --hash values
// straight to Enforcer.Lookup rather than through a package.
type Static struct {
	certs map[string][][]byte
}

// NewStatic builds a Static PackageManager from a package-name -> DER
// certificate list map.
func NewStatic(certs map[string][][]byte) *Static {
	return &Static{certs: certs}
}

func (s *Static) PackagesForUID(uid int) ([]string, error) {
	return nil, errs.MissingResource("static package manager has no UID mapping")
}

func (s *Static) SigningCertificates(packageName string) ([][]byte, error) {
	certs, ok := s.certs[packageName]
	if !ok {
		return nil, errs.NoSuchElement("no such package: %s", packageName)
	}
	return certs, nil
}
