// Пакет rbac — логика определения эффективной роли пользователя DocShare.
// Роли сопоставляются группам IdP: sharer публикует подборки документов,
// viewer только просматривает доступные ему. Sharer включает права viewer.
// Правила: итоговая роль = max(совпавших ролей); роль можно только повысить.
package rbac

// Роли в порядке возрастания привилегий.
const (
	RoleViewer = "viewer"
	RoleSharer = "sharer"
)

// roleWeight — вес роли для сравнения.
// Чем выше вес, тем больше привилегий.
var roleWeight = map[string]int{
	RoleViewer: 1,
	RoleSharer: 2,
}

// maxRole возвращает роль с максимальными привилегиями из двух.
func maxRole(a, b string) string {
	wa := roleWeight[a]
	wb := roleWeight[b]
	if wa >= wb {
		return a
	}
	return b
}

// HighestRole возвращает максимальную роль из набора.
// Если набор пуст — возвращает пустую строку.
func HighestRole(roles []string) string {
	if len(roles) == 0 {
		return ""
	}
	highest := roles[0]
	for _, r := range roles[1:] {
		highest = maxRole(highest, r)
	}
	return highest
}

// MapGroupsToRole определяет роль пользователя на основе его групп IdP.
// Проверяет принадлежность к sharerGroups и viewerGroups.
// Возвращает максимальную роль из всех совпадений.
// Если ни одна группа не совпала — возвращает пустую строку.
func MapGroupsToRole(groups []string, sharerGroups, viewerGroups []string) string {
	sharerSet := toSet(sharerGroups)
	viewerSet := toSet(viewerGroups)

	var roles []string
	for _, g := range groups {
		if sharerSet[g] {
			roles = append(roles, RoleSharer)
		}
		if viewerSet[g] {
			roles = append(roles, RoleViewer)
		}
	}

	return HighestRole(roles)
}

// IsValidRole проверяет, является ли строка допустимой ролью.
func IsValidRole(role string) bool {
	_, ok := roleWeight[role]
	return ok
}

// Allows проверяет, достаточно ли роли have для требований роли want.
// Sharer проходит проверки viewer, обратное неверно.
func Allows(have, want string) bool {
	return roleWeight[have] >= roleWeight[want] && roleWeight[want] > 0
}

// toSet конвертирует срез строк в map для быстрого поиска.
func toSet(items []string) map[string]bool {
	s := make(map[string]bool, len(items))
	for _, item := range items {
		s[item] = true
	}
	return s
}
