package model

import "strconv"

// Domain identifies one of the two independent identity domains.
type Domain string

const (
	// DomainService is the domain of operators owning applications.
	DomainService Domain = "service"
	// DomainApp is the domain of end users registered inside one application.
	DomainApp Domain = "app"
)

// Scope narrows a store or service call to an identity domain and, for
// application users, to a single application.
type Scope struct {
	Domain Domain
	AppID  int64
}

// ServiceScope returns the scope of service users.
func ServiceScope() Scope {
	return Scope{Domain: DomainService}
}

// AppScope returns the scope of the users of application appID.
func AppScope(appID int64) Scope {
	return Scope{Domain: DomainApp, AppID: appID}
}

// IsApp reports whether the scope addresses application users.
func (s Scope) IsApp() bool {
	return s.Domain == DomainApp
}

func (s Scope) String() string {
	if s.IsApp() {
		return string(s.Domain) + ":" + strconv.FormatInt(s.AppID, 10)
	}
	return string(s.Domain)
}
