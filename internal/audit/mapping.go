package audit

import "strings"

// ActionResource holds action and resource derived from a gRPC full method name.
type ActionResource struct {
	Action   string
	Resource string
}

const unknown = "unknown"

// methodOverrides maps methods whose subject is not their service's resource.
var methodOverrides = map[string]ActionResource{
	"/socialauth.auth.v1.AuthService/Refresh": {Action: "refresh", Resource: ResourceSession},
	"/socialauth.auth.v1.AuthService/Logout":  {Action: "logout", Resource: ResourceSession},
	"/socialauth.user.v1.UserService/GetMe":   {Action: "get", Resource: ResourceUser},
}

// verbPrefixes maps a method-name prefix to its action. Checked in order.
var verbPrefixes = []struct {
	prefix string
	action string
}{
	{"Get", "get"},
	{"List", "list"},
	{"Create", "create"},
	{"Update", "update"},
	{"Delete", "delete"},
	{"Register", "register"},
	{"Revoke", "revoke"},
}

// ParseFullMethod returns action and resource for a gRPC full method
// (/socialauth.<pkg>.v1.<Name>Service/<Method>). The resource is <Name> lowercased; the
// action is the method's CRUD verb, or the lowercased method name when it has none.
func ParseFullMethod(fullMethod string) ActionResource {
	if ar, ok := methodOverrides[fullMethod]; ok {
		return ar
	}
	slash := strings.LastIndex(fullMethod, "/")
	if slash < 0 {
		return ActionResource{Action: unknown, Resource: unknown}
	}
	method := fullMethod[slash+1:]
	service := fullMethod[:slash]
	dot := strings.LastIndex(service, ".")
	if dot < 0 {
		return ActionResource{Action: strings.ToLower(method), Resource: unknown}
	}
	return ActionResource{Action: methodToAction(method), Resource: serviceToResource(service[dot+1:])}
}

func serviceToResource(serviceName string) string {
	s := strings.TrimSuffix(serviceName, "Service")
	if s == "" {
		return unknown
	}
	return strings.ToLower(s[:1]) + s[1:]
}

func methodToAction(method string) string {
	for _, v := range verbPrefixes {
		if strings.HasPrefix(method, v.prefix) && len(method) > len(v.prefix) {
			return v.action
		}
	}
	return strings.ToLower(method)
}
